package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/search"
	"github.com/incidents-platform/auth-service/internal/tasks"
	"github.com/incidents-platform/auth-service/internal/util"
)

// ReindexService keeps the user search index in step with the store: a
// best-effort full reindex at process start plus query-time hydration of
// search hits back into account DTOs.
type ReindexService struct {
	Repo  *repo.GormRepo
	Index SearchIndex
	Tasks *tasks.Runner
}

// SubmitFullReindex runs once at startup, outside the request path.
// Failures are logged by the runner and never block boot.
func (s *ReindexService) SubmitFullReindex() {
	if s.Index == nil || s.Tasks == nil {
		return
	}
	s.Tasks.Submit("search.reindex_all", s.ReindexAll)
}

func (s *ReindexService) ReindexAll(ctx context.Context) error {
	users, err := s.Repo.ListAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	docs := make([]search.UserDoc, len(users))
	for i := range users {
		docs[i] = userDoc(&users[i])
	}
	return s.Index.BulkUpsert(ctx, docs)
}

// SearchUsers queries the index, then hydrates hits from the store so
// results carry live token counts and block state rather than stale
// index copies.
func (s *ReindexService) SearchUsers(ctx context.Context, query string, page, size int) (*UsersPage, error) {
	from, limit := util.Calculate(page, size)

	total, docs, err := s.Index.Search(ctx, query, from, limit)
	if err != nil {
		return nil, internalErr(ctx, "search.users", err)
	}

	ids := make([]uuid.UUID, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	users, err := s.Repo.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, internalErr(ctx, "search.users", err)
	}

	dtos := make([]UserDTO, len(users))
	for i := range users {
		dto := userDTO(&users[i])
		count, err := s.Repo.CountTokensForUser(ctx, users[i].ID)
		if err != nil {
			return nil, internalErr(ctx, "search.users", err)
		}
		dto.TokensCount = count
		dtos[i] = dto
	}

	if page < 1 {
		page = 1
	}
	return &UsersPage{Total: total, Page: page, Limit: limit, Users: dtos}, nil
}
