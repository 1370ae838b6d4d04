package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/db"
	"civicwatch/internal/models"
)

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) UpdateUserRole(_ context.Context, id uuid.UUID, role string) error {
	u, ok := f.users[id]
	if !ok {
		return db.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func TestUserList(t *testing.T) {
	admin := testUser(models.RoleAdmin)
	store := &fakeUsers{users: map[uuid.UUID]*models.User{admin.ID: admin}}

	app := newTestApp(admin)
	app.Get("/api/admin/users", NewUserHandler(store).List)

	status, env := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	require.Equal(t, http.StatusOK, status)

	var got []models.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, admin.ID, got[0].ID)
}

func TestUserUpdateRole(t *testing.T) {
	admin := testUser(models.RoleAdmin)
	member := testUser(models.RoleUser)

	tests := []struct {
		name     string
		id       string
		body     string
		want     int
		wantRole string
	}{
		{"promote", member.ID.String(), `{"role":"admin"}`, http.StatusOK, models.RoleAdmin},
		{"invalid role", member.ID.String(), `{"role":"moderator"}`, http.StatusBadRequest, models.RoleUser},
		{"missing role", member.ID.String(), `{}`, http.StatusBadRequest, models.RoleUser},
		{"invalid id", "not-a-uuid", `{"role":"admin"}`, http.StatusBadRequest, models.RoleUser},
		{"unknown user", uuid.NewString(), `{"role":"admin"}`, http.StatusNotFound, models.RoleUser},
		{"self demotion", admin.ID.String(), `{"role":"user"}`, http.StatusBadRequest, models.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := *member
			a := *admin
			store := &fakeUsers{users: map[uuid.UUID]*models.User{m.ID: &m, a.ID: &a}}

			app := newTestApp(&a)
			app.Post("/api/admin/users/:id/role", NewUserHandler(store).UpdateRole)

			status, _ := doRequest(t, app, rawRequest(http.MethodPost, "/api/admin/users/"+tt.id+"/role", tt.body))
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.wantRole, m.Role)
			assert.Equal(t, models.RoleAdmin, a.Role)
		})
	}
}
