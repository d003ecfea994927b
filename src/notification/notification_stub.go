//go:build !windows

package notification

func showBlocking(title, message string) {}
