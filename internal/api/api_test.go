/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelter/shelterboard/internal/audit"
	"github.com/openshelter/shelterboard/internal/auth"
	"github.com/openshelter/shelterboard/internal/config"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/hotel"
	"github.com/openshelter/shelterboard/internal/inventory"
	"github.com/openshelter/shelterboard/internal/logbuffer"
	"github.com/openshelter/shelterboard/internal/migration"
	"github.com/openshelter/shelterboard/internal/models"
	"github.com/openshelter/shelterboard/internal/occupancy"
	"github.com/openshelter/shelterboard/internal/photos"
)

var testSecret = []byte("test-secret")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Kennel{},
		&models.Animal{},
		&models.Stay{},
		&models.Reservation{},
		&models.InventoryItem{},
		&models.StockMovement{},
		&models.SystemSettings{},
		&models.AuditLog{},
		&migration.Job{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestAPI(t *testing.T) (*API, *gorm.DB, http.Handler) {
	t.Helper()

	db := newTestDB(t)
	log := zerolog.Nop()
	bus := events.NewBus()

	photoSvc, err := photos.NewService(&config.Config{PhotoRoot: t.TempDir()}, log)
	if err != nil {
		t.Fatalf("photos: %v", err)
	}

	hotelSvc := hotel.NewService(db, bus, log)
	materializer := hotel.NewMaterializer(db, bus, log, time.Minute, 90*24*time.Hour, func() bool { return true })
	inventorySvc := inventory.NewService(db, bus, log)
	auditSvc := audit.NewService(db, bus, log)
	migrationSvc := migration.NewService(db, bus, log)
	migrationSvc.RegisterImporter(migration.SourceTypeSQLiteExport, migration.NewSQLiteImporter(db, log))

	a := New(db, testSecret, time.Hour, hotelSvc, materializer, inventorySvc, auditSvc, migrationSvc, photoSvc, nil, bus, logbuffer.New(128), log)

	r := chi.NewRouter()
	a.Routes(r)
	return a, db, r
}

func tokenFor(t *testing.T, userID string, role models.RoleName) string {
	t.Helper()
	token, err := auth.Issue(testSecret, auth.Claims{
		UserID: userID,
		Email:  "tester@shelter.local",
		Role:   string(role),
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return out
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, role models.RoleName, active bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     "Tester",
		Password: string(hash),
		Role:     role,
		Active:   active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedKennel(t *testing.T, db *gorm.DB, name string, capacity int) models.Kennel {
	t.Helper()
	kennel := models.Kennel{
		ID:       uuid.NewString(),
		Name:     name,
		Building: "A",
		Capacity: capacity,
		Species:  models.SpeciesDog,
		Active:   true,
	}
	if err := db.Create(&kennel).Error; err != nil {
		t.Fatalf("seed kennel: %v", err)
	}
	return kennel
}

func seedAnimal(t *testing.T, db *gorm.DB, name string) models.Animal {
	t.Helper()
	animal := models.Animal{
		ID:      uuid.NewString(),
		Name:    name,
		Species: models.SpeciesDog,
		Status:  models.AnimalInShelter,
	}
	if err := db.Create(&animal).Error; err != nil {
		t.Fatalf("seed animal: %v", err)
	}
	return animal
}

func seedStay(t *testing.T, db *gorm.DB, kennelID, animalID string, startsAt time.Time, endsAt *time.Time) models.Stay {
	t.Helper()
	stay := models.Stay{
		ID:       uuid.NewString(),
		KennelID: kennelID,
		AnimalID: animalID,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
	if err := db.Create(&stay).Error; err != nil {
		t.Fatalf("seed stay: %v", err)
	}
	return stay
}

func TestHealth(t *testing.T) {
	_, _, h := newTestAPI(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	_, db, h := newTestAPI(t)
	seedUser(t, db, "admin@shelter.local", "hunter2", models.RoleAdmin, true)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@shelter.local", "password": "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]any](t, rec)
	if resp["token"] == "" || resp["token"] == nil {
		t.Fatal("expected a token")
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@shelter.local", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	_, db, h := newTestAPI(t)
	seedUser(t, db, "gone@shelter.local", "hunter2", models.RoleManager, false)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "gone@shelter.local", "password": "hunter2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "account_deactivated" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestAuthRequired(t *testing.T) {
	_, _, h := newTestAPI(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/animals/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	_, db, h := newTestAPI(t)
	volunteer := seedUser(t, db, "vol@shelter.local", "pw", models.RoleVolunteer, true)
	token := tokenFor(t, volunteer.ID, models.RoleVolunteer)

	// Volunteers can read but not create animals.
	rec := doRequest(t, h, http.MethodGet, "/api/v1/animals/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/animals/", token, map[string]string{"name": "Rex"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("create status = %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "insufficient_role" {
		t.Fatalf("error = %q", resp["error"])
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/users/", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("users status = %d", rec.Code)
	}
}

func TestAnimalCRUD(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/animals/", token, map[string]string{
		"name": "Rex", "species": "dog", "breed": "mix", "chip_number": "CHIP-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[models.Animal](t, rec)
	if created.ID == "" || created.Status != models.AnimalInShelter {
		t.Fatalf("unexpected animal: %+v", created)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/animals/"+created.ID+"/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/animals/"+created.ID+"/", token, map[string]string{
		"name": "Rexford",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	updated := decodeBody[models.Animal](t, rec)
	if updated.Name != "Rexford" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.ChipNumber != "CHIP-1" {
		t.Fatal("patch should not clear untouched fields")
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/animals/"+created.ID+"/", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestAnimalDeleteBlockedByStays(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	kennel := seedKennel(t, db, "K-1", 1)
	animal := seedAnimal(t, db, "Rex")
	seedStay(t, db, kennel.ID, animal.ID, time.Now().Add(-24*time.Hour), nil)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/animals/"+animal.ID+"/", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "animal_has_stays" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestStayCreateAndEnd(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	kennel := seedKennel(t, db, "K-1", 1)
	animal := seedAnimal(t, db, "Rex")

	rec := doRequest(t, h, http.MethodPost, "/api/v1/stays/", token, map[string]any{
		"kennel_id": kennel.ID,
		"animal_id": animal.ID,
		"starts_at": time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stay := decodeBody[models.Stay](t, rec)
	if stay.EndsAt != nil {
		t.Fatal("walk-in stay should be open")
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/stays/"+stay.ID+"/end", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d, body = %s", rec.Code, rec.Body.String())
	}
	ended := decodeBody[models.Stay](t, rec)
	if ended.EndsAt == nil {
		t.Fatal("stay should be ended")
	}

	rec = doRequest(t, h, http.MethodPost, "/api/v1/stays/"+stay.ID+"/end", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double end status = %d", rec.Code)
	}
}

func TestStayCreateOverCapacitySucceeds(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	kennel := seedKennel(t, db, "K-1", 1)
	first := seedAnimal(t, db, "Rex")
	second := seedAnimal(t, db, "Bella")
	seedStay(t, db, kennel.ID, first.ID, time.Now().Add(-48*time.Hour), nil)

	// The second walk-in exceeds capacity but is still accepted; the
	// overflow surfaces as a timeline conflict, not a rejection.
	rec := doRequest(t, h, http.MethodPost, "/api/v1/stays/", token, map[string]any{
		"kennel_id": kennel.ID,
		"animal_id": second.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestStayCreateRejectsInvertedRange(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	kennel := seedKennel(t, db, "K-1", 1)
	animal := seedAnimal(t, db, "Rex")

	start := time.Now()
	end := start.Add(-time.Hour).Format(time.RFC3339)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/stays/", token, map[string]any{
		"kennel_id": kennel.ID,
		"animal_id": animal.ID,
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   end,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "ends_before_start" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestTimeline(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	kennel := seedKennel(t, db, "K-1", 1)
	inactive := models.Kennel{ID: uuid.NewString(), Name: "K-stale", Capacity: 1, Active: false}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("seed inactive kennel: %v", err)
	}

	rex := seedAnimal(t, db, "Rex")
	bella := seedAnimal(t, db, "Bella")

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mid := from.AddDate(0, 0, 5)
	seedStay(t, db, kennel.ID, rex.ID, from.AddDate(0, 0, 1), &mid)
	overlapEnd := from.AddDate(0, 0, 8)
	seedStay(t, db, kennel.ID, bella.ID, from.AddDate(0, 0, 3), &overlapEnd)

	url := fmt.Sprintf("/api/v1/timeline?from=%s&to=%s", from.Format("2006-01-02"), from.AddDate(0, 0, 14).Format("2006-01-02"))
	rec := doRequest(t, h, http.MethodGet, url, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	tl := decodeBody[occupancy.Timeline](t, rec)
	if len(tl.Days) != 15 {
		t.Fatalf("days = %d", len(tl.Days))
	}
	if len(tl.Rows) != 1 {
		t.Fatalf("rows = %d, inactive kennels must not appear", len(tl.Rows))
	}

	row := tl.Rows[0]
	if row.KennelID != kennel.ID {
		t.Fatalf("row kennel = %s", row.KennelID)
	}

	// Capacity 1 with two overlapping stays: the second one lands in the
	// least-bad lane and is flagged.
	conflicts := 0
	segments := 0
	for _, lane := range row.Lanes {
		for _, seg := range lane {
			segments++
			if seg.Conflicts {
				conflicts++
			}
		}
	}
	if segments != 2 {
		t.Fatalf("segments = %d", segments)
	}
	if conflicts == 0 {
		t.Fatal("expected the overlapping stay to be flagged")
	}
}

func TestTimelineRejectsBadWindow(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/timeline?from=yesterday", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestKennelCRUD(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/kennels/", token, map[string]any{
		"name": "K-9", "building": "B", "capacity": 3, "species": "dog",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	kennel := decodeBody[models.Kennel](t, rec)
	if kennel.Capacity != 3 {
		t.Fatalf("capacity = %d", kennel.Capacity)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/kennels/"+kennel.ID+"/", token, map[string]any{
		"active": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/kennels/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	active := decodeBody[[]models.Kennel](t, rec)
	if len(active) != 0 {
		t.Fatalf("active kennels = %d", len(active))
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/kennels/?include_inactive=true", token, nil)
	all := decodeBody[[]models.Kennel](t, rec)
	if len(all) != 1 {
		t.Fatalf("all kennels = %d", len(all))
	}
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/settings/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	settings := decodeBody[models.SystemSettings](t, rec)
	if settings.TimelineDays != 30 || settings.CheckoutHour != 11 {
		t.Fatalf("defaults = %+v", settings)
	}

	rec = doRequest(t, h, http.MethodPut, "/api/v1/settings/", token, map[string]any{
		"shelter_name": "Hope Shelter", "timeline_days": 60, "checkout_hour": 10, "timezone": "UTC",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPut, "/api/v1/settings/", token, map[string]any{
		"timeline_days": 9999,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid days status = %d", rec.Code)
	}
}

func TestUsersSelfDeleteBlocked(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/users/"+admin.ID+"/", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "cannot_delete_self" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestMigrationsValidation(t *testing.T) {
	_, db, h := newTestAPI(t)
	admin := seedUser(t, db, "admin@shelter.local", "pw", models.RoleAdmin, true)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/migrations/", token, map[string]any{
		"source_type": "sqlite_export",
		"options":     map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]any](t, rec)
	if resp["error"] != "validation_failed" {
		t.Fatalf("error = %v", resp["error"])
	}
}
