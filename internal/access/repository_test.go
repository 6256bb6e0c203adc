package access

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database/dbtest"
)

// setupRepo returns a user repository with one device, "gate-1", created.
func setupRepo(t *testing.T) (*SQLiteRepository, *device.SQLiteRepository, *clock.Mock) {
	t.Helper()
	db := dbtest.Open(t)
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	devices := device.NewSQLiteRepository(db, clk)
	err := devices.Create(context.Background(), &device.Device{
		ID:           "gate-1",
		Name:         "Front gate",
		PhoneNumber:  "+15550001",
		AccessMode:   device.AccessAuthorizedOnly,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	})
	if err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return NewSQLiteRepository(db, clk), devices, clk
}

func testUser(id, phone string) *AuthorizedUser {
	return &AuthorizedUser{
		ID:          id,
		DeviceID:    "gate-1",
		Name:        "User " + id,
		PhoneNumber: phone,
		ValidFrom:   date(2024, 1, 1),
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	u := testUser("u-1", "+1 555 0100")
	u.SerialNumber = "gk-1"
	u.ValidUntil = ptr(date(2024, 12, 31))
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PhoneNumber != "+15550100" || got.SerialNumber != "GK-1" {
		t.Errorf("factors = %q/%q, want normalised", got.PhoneNumber, got.SerialNumber)
	}
	if !got.ValidFrom.Equal(date(2024, 1, 1)) {
		t.Errorf("ValidFrom = %v", got.ValidFrom)
	}
	if got.ValidUntil == nil || !got.ValidUntil.Equal(date(2024, 12, 31)) {
		t.Errorf("ValidUntil = %v", got.ValidUntil)
	}
	if got.Source != SourceLocal {
		t.Errorf("Source = %q, want %q", got.Source, SourceLocal)
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	repo, _, _ := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
}

func TestSQLiteRepository_Create_Errors(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testUser("u-1", "+15550100")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dirUser := testUser("u-dir", "+15550101")
	dirUser.Source = SourceDirectory
	dirUser.ExternalID = "ext-1"
	if err := repo.Create(ctx, dirUser); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	unknownDevice := testUser("u-2", "+15550102")
	unknownDevice.DeviceID = "gate-404"

	dupExternal := testUser("u-3", "+15550103")
	dupExternal.Source = SourceDirectory
	dupExternal.ExternalID = "ext-1"

	tests := []struct {
		name    string
		user    *AuthorizedUser
		wantErr error
	}{
		{"unknown device", unknownDevice, device.ErrDeviceNotFound},
		{"duplicate id", testUser("u-1", "+15550104"), ErrUserExists},
		{"duplicate external id", dupExternal, ErrUserExists},
		{"no factor", &AuthorizedUser{ID: "u-4", DeviceID: "gate-1", ValidFrom: date(2024, 1, 1)}, ErrInvalidUser},
		{"missing id", &AuthorizedUser{DeviceID: "gate-1", PhoneNumber: "+15550105", ValidFrom: date(2024, 1, 1)}, ErrInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteRepository_ListByDevice_NewestFirst(t *testing.T) {
	repo, _, clk := setupRepo(t)
	ctx := context.Background()

	for _, id := range []string{"u-1", "u-2", "u-3"} {
		if err := repo.Create(ctx, testUser(id, "+1555010"+id[2:])); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
		clk.Add(time.Minute)
	}

	users, err := repo.ListByDevice(ctx, "gate-1")
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListByDevice() returned %d users, want 3", len(users))
	}
	for i, want := range []string{"u-3", "u-2", "u-1"} {
		if users[i].ID != want {
			t.Errorf("users[%d] = %s, want %s", i, users[i].ID, want)
		}
	}

	empty, err := repo.ListByDevice(ctx, "gate-404")
	if err != nil {
		t.Fatalf("ListByDevice(unknown) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListByDevice(unknown) = %v, want empty slice", empty)
	}
}

func TestSQLiteRepository_FindByIdentity(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	phoneOnly := testUser("u-phone", "+15550100")
	serialOnly := &AuthorizedUser{ID: "u-serial", DeviceID: "gate-1", SerialNumber: "GK-1", ValidFrom: date(2024, 1, 1)}
	expired := testUser("u-expired", "+15550100")
	expired.ValidFrom = date(2020, 1, 1)
	expired.ValidUntil = ptr(date(2020, 12, 31))
	for _, u := range []*AuthorizedUser{phoneOnly, serialOnly, expired} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create(%s) error = %v", u.ID, err)
		}
	}

	tests := []struct {
		name string
		id   Identity
		want int
	}{
		{"phone includes expired rows", Identity{Phone: "+15550100"}, 2},
		{"serial", Identity{Serial: "GK-1"}, 1},
		{"either factor", Identity{Phone: "+15550100", Serial: "GK-1"}, 3},
		{"no match", Identity{Phone: "+15559999"}, 0},
		{"zero identity", Identity{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByIdentity(ctx, "gate-1", tt.id)
			if err != nil {
				t.Fatalf("FindByIdentity() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("FindByIdentity() returned %d users, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSQLiteRepository_ListActiveAt(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	current := testUser("u-1", "+15550100")
	expired := testUser("u-2", "+15550101")
	expired.ValidUntil = ptr(date(2024, 3, 1))
	for _, u := range []*AuthorizedUser{current, expired} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create(%s) error = %v", u.ID, err)
		}
	}

	active, err := repo.ListActiveAt(ctx, "gate-1", date(2024, 6, 1))
	if err != nil {
		t.Fatalf("ListActiveAt() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "u-1" {
		t.Errorf("ListActiveAt() = %+v, want only u-1", active)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testUser("u-1", "+15550100")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "u-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "u-1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() second call error = %v, want ErrUserNotFound", err)
	}
}

func TestSQLiteRepository_DeviceDeleteCascades(t *testing.T) {
	repo, devices, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testUser("u-1", "+15550100")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := devices.Delete(ctx, "gate-1"); err != nil {
		t.Fatalf("device Delete() error = %v", err)
	}

	users, err := repo.ListByDevice(ctx, "gate-1")
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListByDevice() after cascade = %d users, want 0", len(users))
	}
}

func TestSQLiteRepository_WithTx(t *testing.T) {
	db := dbtest.Open(t)
	clk := clock.NewMock()
	devices := device.NewSQLiteRepository(db, clk)
	users := NewSQLiteRepository(db, clk)
	ctx := context.Background()

	if err := devices.Create(ctx, &device.Device{
		ID: "gate-1", Name: "Gate", PhoneNumber: "+15550001",
		AccessMode: device.AccessAuthorizedOnly, PasswordHash: "x",
	}); err != nil {
		t.Fatalf("creating device: %v", err)
	}

	rollback := errors.New("rollback")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := users.WithTx(tx).Create(ctx, testUser("u-1", "+15550100")); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("WithTx() error = %v, want rollback", err)
	}

	if _, err := users.GetByID(ctx, "u-1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() after rollback error = %v, want ErrUserNotFound", err)
	}
}
