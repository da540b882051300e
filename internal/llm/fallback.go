package llm

import (
	"context"
	"errors"
	"fmt"
)

// Fallback tries each client in order and returns the first successful response.
type Fallback struct {
	clients []Client
}

func NewFallback(clients ...Client) *Fallback {
	return &Fallback{clients: clients}
}

func (f *Fallback) Generate(ctx context.Context, messages []Message) (Response, error) {
	if len(f.clients) == 0 {
		return Response{}, errors.New("no llm clients configured")
	}
	var errs []error
	for i, c := range f.clients {
		resp, err := c.Generate(ctx, messages)
		if err == nil {
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("client %d: %w", i, err))
		// a spent deadline fails every remaining model the same way
		if ctx.Err() != nil {
			break
		}
	}
	return Response{}, errors.Join(errs...)
}
