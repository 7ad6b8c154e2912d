package actions

import (
	"fmt"
	"strings"
)

// CheckCycles rejects an action tree in which some action contains itself,
// directly or through descendants.
func CheckCycles(a Action) error {
	return checkCycles(a, nil)
}

func checkCycles(a Action, path []Action) error {
	for _, p := range path {
		if p == a {
			return fmt.Errorf("%w: %s", ErrCycle, formatPath(append(path, a)))
		}
	}
	parent, ok := a.(Parent)
	if !ok {
		return nil
	}
	path = append(path, a)
	for _, child := range parent.Children() {
		if err := checkCycles(child, path); err != nil {
			return err
		}
	}
	return nil
}

func formatPath(path []Action) string {
	names := make([]string, len(path))
	for i, a := range path {
		names[i] = a.Name()
	}
	return strings.Join(names, " -> ")
}
