package utils

import "sync"

// RunParallel executes the tasks concurrently and returns one error slot per
// task, in task order. Used for fanning out notification mails.
func RunParallel(tasks []func() error) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t func() error) {
			defer wg.Done()
			errs[index] = t()
		}(i, task)
	}

	wg.Wait()
	return errs
}
