package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/nexus-rag/nexus/internal/secure"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&secure.Message{}, &secure.Usage{}, &secure.Lead{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func insertMessageAt(t *testing.T, db *gorm.DB, session string, age time.Duration) {
	t.Helper()
	m := secure.Message{SessionID: session, Role: "user", Content: []byte{0x01}}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}
	at := time.Now().UTC().Add(-age)
	if err := db.Model(&secure.Message{}).Where("id = ?", m.ID).Update("created_at", at).Error; err != nil {
		t.Fatalf("backdate message: %v", err)
	}
}

func insertUsageAt(t *testing.T, db *gorm.DB, session string, age time.Duration) {
	t.Helper()
	u := secure.Usage{SessionID: session}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("insert usage: %v", err)
	}
	at := time.Now().UTC().Add(-age)
	if err := db.Model(&secure.Usage{}).Where("id = ?", u.ID).Update("created_at", at).Error; err != nil {
		t.Fatalf("backdate usage: %v", err)
	}
}

func TestSweep_IndependentHorizons(t *testing.T) {
	db := openTestDB(t)
	sweeper := NewSweeper(secure.NewRepo(db), 2*time.Hour, 24*time.Hour)

	insertMessageAt(t, db, "s1", 3*time.Hour) // past chat horizon
	insertMessageAt(t, db, "s1", 1*time.Hour) // inside chat horizon
	insertUsageAt(t, db, "s1", 25*time.Hour)  // past log horizon
	insertUsageAt(t, db, "s1", 23*time.Hour)  // inside log horizon

	res, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.DeletedMessages != 1 {
		t.Fatalf("deleted_messages = %d, want 1", res.DeletedMessages)
	}
	if res.DeletedUsage != 1 {
		t.Fatalf("deleted_usage = %d, want 1", res.DeletedUsage)
	}

	var msgCount, usageCount int64
	if err := db.Model(&secure.Message{}).Count(&msgCount).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if err := db.Model(&secure.Usage{}).Count(&usageCount).Error; err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if msgCount != 1 || usageCount != 1 {
		t.Fatalf("surviving rows: messages=%d usage=%d, want 1 and 1", msgCount, usageCount)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	db := openTestDB(t)
	sweeper := NewSweeper(secure.NewRepo(db), 2*time.Hour, 24*time.Hour)

	insertMessageAt(t, db, "s1", 3*time.Hour)
	insertUsageAt(t, db, "s1", 25*time.Hour)

	if _, err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	res, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.DeletedMessages != 0 || res.DeletedUsage != 0 {
		t.Fatalf("second sweep must delete nothing, got %+v", res)
	}
}

func TestSweep_FreshRowsSurviveNonUTCHost(t *testing.T) {
	// sqlite compares time text lexicographically, so a created_at
	// stamped in a local zone would sort behind a UTC cutoff by the
	// host offset and a just-written row would be swept immediately.
	origLocal := time.Local
	time.Local = time.FixedZone("UTC-5", -5*60*60)
	defer func() { time.Local = origLocal }()

	db := openTestDB(t)
	repo := secure.NewRepo(db)
	sweeper := NewSweeper(repo, 2*time.Hour, 24*time.Hour)
	ctx := context.Background()

	if err := repo.InsertMessage(ctx, &secure.Message{SessionID: "s1", Role: "user", Content: []byte{0x01}}); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := repo.InsertUsage(ctx, &secure.Usage{SessionID: "s1"}); err != nil {
		t.Fatalf("insert usage: %v", err)
	}

	res, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.DeletedMessages != 0 || res.DeletedUsage != 0 {
		t.Fatalf("fresh rows swept on non-UTC host: %+v", res)
	}

	count, err := repo.CountUsageSince(ctx, "s1", time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if count != 1 {
		t.Fatalf("fresh usage row outside the window on non-UTC host: count=%d", count)
	}
}

func TestSweep_LeavesLeadsAlone(t *testing.T) {
	db := openTestDB(t)
	sweeper := NewSweeper(secure.NewRepo(db), 2*time.Hour, 24*time.Hour)

	lead := secure.Lead{ID: "01LEAD0000000000000000000X", ContactInfo: []byte{0x01}}
	if err := db.Create(&lead).Error; err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	old := time.Now().UTC().Add(-1000 * time.Hour)
	if err := db.Model(&secure.Lead{}).Where("id = ?", lead.ID).Update("created_at", old).Error; err != nil {
		t.Fatalf("backdate lead: %v", err)
	}

	if _, err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var cnt int64
	if err := db.Model(&secure.Lead{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count leads: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("lead was swept; leads have no retention horizon")
	}
}
