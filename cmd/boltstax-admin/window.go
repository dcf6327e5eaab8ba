package main

import (
	"fmt"
	"time"
)

func parseWindow(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid window %q: expected a positive duration such as 48h", s)
	}
	return d, nil
}
