//go:build !windows

package main

func gpuBackends() string {
	return ""
}
