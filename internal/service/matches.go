package service

import (
	"context"

	"github.com/and161185/machtrueke/internal/likes"
	"github.com/and161185/machtrueke/internal/model"
)

// MatchAPI is the slice of the REST client used by the likes view.
type MatchAPI interface {
	ListMyMatches(ctx context.Context) ([]model.Match, error)
}

// MatchService defines operations over the local match list.
type MatchService interface {
	// Load replaces the local list with the backend's.
	Load(ctx context.Context) ([]model.Match, error)
}

type MatchServiceImpl struct {
	api  MatchAPI
	list *likes.List
}

// NewMatchService constructs MatchService over list.
func NewMatchService(api MatchAPI, list *likes.List) *MatchServiceImpl {
	return &MatchServiceImpl{api: api, list: list}
}

// Load leaves the local list untouched when the backend call fails.
func (s *MatchServiceImpl) Load(ctx context.Context) ([]model.Match, error) {
	ms, err := s.api.ListMyMatches(ctx)
	if err != nil {
		return nil, err
	}
	s.list.SetAll(ms)
	return s.list.All(), nil
}
