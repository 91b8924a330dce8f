package main

import (
	_ "vidmatch/internal/ffmpeg"
	_ "vidmatch/internal/video/imagedir"
)
