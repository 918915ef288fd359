// Package gen is the boundary to the external image and video generation
// backend. Service describes what the board needs from it; Client talks to
// a backend over HTTP JSON and a websocket progress stream.
package gen

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the backend rejects the credentials.
	// Hosts check for it to send the user back to sign-in.
	ErrUnauthorized = errors.New("gen: unauthorized")
	// ErrEmptyResult is returned when a call succeeds without any image.
	ErrEmptyResult = errors.New("gen: response carries no image")
)

// ServiceError is a failure reported by the backend.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status == 0 {
		return "gen: " + e.Message
	}
	return fmt.Sprintf("gen: %d: %s", e.Status, e.Message)
}

// ImageInput is one image handed to the backend.
type ImageInput struct {
	Source   string `json:"source"`
	MimeType string `json:"mimeType"`
}

// EditRequest asks for an edit of one or more images.
type EditRequest struct {
	Images     []ImageInput `json:"images"`
	Prompt     string       `json:"prompt"`
	Model      string       `json:"model,omitempty"`
	SessionID  string       `json:"sessionId,omitempty"`
	TargetSize int          `json:"targetSize"`
}

// GenerateRequest asks for a new image from a prompt.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Model      string `json:"model,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	TargetSize int    `json:"targetSize"`
}

// Result is the backend's answer to an edit or generate call. Exactly one
// of ImageURL and Base64 is normally set.
type Result struct {
	ImageURL     string `json:"imageUrl,omitempty"`
	Base64       string `json:"base64,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	TextResponse string `json:"textResponse,omitempty"`
}

// Source returns a locator for the returned image: the URL, or a data URL
// built from the inline payload.
func (r Result) Source() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	if r.Base64 == "" {
		return ""
	}
	mt := r.MimeType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + r.Base64
}

// VideoRequest asks for a video between a start and an optional end frame.
type VideoRequest struct {
	Prompt     string      `json:"prompt"`
	StartImage ImageInput  `json:"startImage"`
	EndImage   *ImageInput `json:"endImage,omitempty"`
	Model      string      `json:"model,omitempty"`
	Resolution string      `json:"resolution"`
	Ratio      string      `json:"ratio"`
	Duration   int         `json:"duration"`
	SessionID  string      `json:"sessionId,omitempty"`
}

// Progress is one update from a running video job.
type Progress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// VideoResult is a finished video job.
type VideoResult struct {
	VideoURL string `json:"videoUrl"`
}

// Model is one backend model.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Service is the generation backend.
type Service interface {
	Edit(ctx context.Context, req EditRequest) (Result, error)
	Generate(ctx context.Context, req GenerateRequest) (Result, error)
	GenerateVideo(ctx context.Context, req VideoRequest, onProgress func(Progress)) (VideoResult, error)
	Models(ctx context.Context) ([]Model, error)
}
