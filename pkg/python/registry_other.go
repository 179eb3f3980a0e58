//go:build !windows

package python

func registryInterpreters() []string { return nil }
