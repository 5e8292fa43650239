package access

import (
	"context"
	"sync"
)

// memStore is an in-memory Store/OperatorStore for unit tests. failWith, when
// set, makes every lookup fail, simulating an unavailable data source.
type memStore struct {
	mu           sync.Mutex
	projects     map[int64]ProjectRecord
	projectRoles map[[2]int64]Role // (projectID, userID) -> role
	teamRoles    map[[2]int64]Role // (teamID, userID) -> role
	operators    map[int64]bool
	failWith     error
}

func newMemStore() *memStore {
	return &memStore{
		projects:     make(map[int64]ProjectRecord),
		projectRoles: make(map[[2]int64]Role),
		teamRoles:    make(map[[2]int64]Role),
		operators:    make(map[int64]bool),
	}
}

func (m *memStore) addProject(id, ownerID int64, teamID *int64) {
	m.projects[id] = ProjectRecord{ID: id, OwnerID: ownerID, TeamID: teamID}
}

func (m *memStore) addProjectRole(projectID, userID int64, role Role) {
	m.projectRoles[[2]int64{projectID, userID}] = role
}

func (m *memStore) addTeamRole(teamID, userID int64, role Role) {
	m.teamRoles[[2]int64{teamID, userID}] = role
}

func (m *memStore) GetProject(ctx context.Context, projectID int64) (*ProjectRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	record, ok := m.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (m *memStore) GetProjectRole(ctx context.Context, projectID, userID int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	role, ok := m.projectRoles[[2]int64{projectID, userID}]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (m *memStore) GetTeamRole(ctx context.Context, teamID, userID int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	role, ok := m.teamRoles[[2]int64{teamID, userID}]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (m *memStore) OwnedProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var ids []int64
	for id, record := range m.projects {
		if record.OwnerID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var ids []int64
	for key := range m.projectRoles {
		if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

func (m *memStore) MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var ids []int64
	for key := range m.teamRoles {
		if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

func (m *memStore) TeamProjectIDs(ctx context.Context, teamIDs []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	teams := make(map[int64]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		teams[id] = struct{}{}
	}
	var ids []int64
	for id, record := range m.projects {
		if record.TeamID == nil {
			continue
		}
		if _, ok := teams[*record.TeamID]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) IsPlatformOperator(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.operators[userID], nil
}
