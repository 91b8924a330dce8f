//go:build gocv

package main

import _ "vidmatch/internal/video/gocvsrc"
