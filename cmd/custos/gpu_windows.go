//go:build windows

package main

import "github.com/Suad0/custos/backend/webgpu"

func gpuBackends() string {
	if webgpu.IsAvailable() {
		return ", webgpu"
	}
	return ", webgpu (unavailable)"
}
