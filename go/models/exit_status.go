package models

import "fmt"

// ExitStatus is returned when the guest program asks to terminate. It ends a
// run normally and is never reported as a fault.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}

func (e ExitStatus) Code() int {
	return int(e)
}
