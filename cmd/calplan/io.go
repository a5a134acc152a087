package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	reqdto "calendar-assistant/internal/handler/dto/request"
)

const defaultDuration = time.Hour

func readIntent(path string) (reqdto.CreatePlanRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return reqdto.CreatePlanRequest{}, err
		}
		defer f.Close()
		r = f
	}
	var req reqdto.CreatePlanRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return reqdto.CreatePlanRequest{}, err
	}
	return req, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
