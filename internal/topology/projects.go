package topology

import (
	"context"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*types.Project, error) {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &types.Project{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, s.storeErr("create project", err)
	}

	s.publish(types.EntityProject, types.ChangeCreated, p.ID, uuid.Nil)
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	return p, s.storeErr("get project", err)
}

func (s *Service) ListProjects(ctx context.Context) ([]types.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	return projects, s.storeErr("list projects", err)
}

func (s *Service) UpdateProject(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*types.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, s.storeErr("get project", err)
	}

	if patch.Name != nil {
		if p.Name, err = cleanName("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, s.storeErr("update project", err)
	}

	s.publish(types.EntityProject, types.ChangeUpdated, p.ID, uuid.Nil)
	return p, nil
}

// DeleteProject removes the project and everything it owns.
func (s *Service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return s.storeErr("delete project", err)
	}
	s.publish(types.EntityProject, types.ChangeDeleted, id, uuid.Nil)
	return nil
}
