package media

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelroom/reelroom-server/internal/db"
)

// repositoryImpls runs a subtest against each Repository implementation, so
// both stores are held to the same contract.
func repositoryImpls(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})

	t.Run("sqlite", func(t *testing.T) {
		database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
		if err != nil {
			t.Fatalf("db.New: %v", err)
		}
		t.Cleanup(func() { database.Close() })
		fn(t, NewSQLiteRepository(database.Conn()))
	})
}

func seedProject(t *testing.T, repo Repository, id string) {
	t.Helper()
	err := repo.CreateProject(context.Background(), &Project{
		ID: id, Name: "Test Project", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
}

func seedClip(t *testing.T, repo Repository, id, projectID string) {
	t.Helper()
	err := repo.CreateClip(context.Background(), &Clip{
		ID:              id,
		ProjectID:       projectID,
		Filename:        id + ".mp4",
		OriginalPath:    "/tmp/" + id + ".mp4",
		UploadedAt:      time.Now().UTC(),
		Source:          SourceOther,
		Status:          StatusProcessing,
		IncludeInExport: true,
	})
	if err != nil {
		t.Fatalf("CreateClip: %v", err)
	}
}

func TestRepository_ProjectRoundTrip(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")

		got, err := repo.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject: %v", err)
		}
		if got == nil || got.Name != "Test Project" {
			t.Fatalf("GetProject = %+v", got)
		}

		absent, err := repo.GetProject(ctx, "nope")
		if err != nil || absent != nil {
			t.Fatalf("absent project = (%+v, %v), want (nil, nil)", absent, err)
		}

		projects, err := repo.ListProjects(ctx)
		if err != nil || len(projects) != 1 {
			t.Fatalf("ListProjects = (%d, %v), want 1 project", len(projects), err)
		}
	})
}

func TestRepository_ClipLifecycle(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")
		seedClip(t, repo, "c1", "p1")

		created := ts("2024-01-15T14:30:00Z")
		if err := repo.UpdateClipProbe(ctx, "c1", 12.5, 1920, 1080, &created); err != nil {
			t.Fatalf("UpdateClipProbe: %v", err)
		}
		if err := repo.MarkClipReady(ctx, "c1", "/proxies/c1.mp4", "/thumbs/c1.jpg"); err != nil {
			t.Fatalf("MarkClipReady: %v", err)
		}

		clip, err := repo.GetClip(ctx, "c1")
		if err != nil || clip == nil {
			t.Fatalf("GetClip = (%+v, %v)", clip, err)
		}
		if clip.Status != StatusReady || clip.ProxyPath != "/proxies/c1.mp4" {
			t.Errorf("clip after ready = %+v", clip)
		}
		if clip.Duration != 12.5 || clip.Width != 1920 || clip.Height != 1080 {
			t.Errorf("probe fields = %v %d %d", clip.Duration, clip.Width, clip.Height)
		}
		if clip.MediaCreatedAt == nil || !clip.MediaCreatedAt.Equal(created) {
			t.Errorf("MediaCreatedAt = %v, want %v", clip.MediaCreatedAt, created)
		}
	})
}

func TestRepository_TerminalWritesAreConditional(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")

		// A stale failure must not overwrite a ready clip.
		seedClip(t, repo, "c1", "p1")
		if err := repo.MarkClipReady(ctx, "c1", "/p.mp4", "/t.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := repo.MarkClipFailed(ctx, "c1", "late failure"); err != nil {
			t.Fatal(err)
		}
		clip, _ := repo.GetClip(ctx, "c1")
		if clip.Status != StatusReady || clip.ProcessError != "" {
			t.Errorf("ready clip overwritten by stale failure: %+v", clip)
		}

		// And a stale success must not resurrect a failed clip.
		seedClip(t, repo, "c2", "p1")
		if err := repo.MarkClipFailed(ctx, "c2", "boom"); err != nil {
			t.Fatal(err)
		}
		if err := repo.MarkClipReady(ctx, "c2", "/p.mp4", "/t.jpg"); err != nil {
			t.Fatal(err)
		}
		clip, _ = repo.GetClip(ctx, "c2")
		if clip.Status != StatusFailed || clip.ProxyPath != "" {
			t.Errorf("failed clip gained artifacts: %+v", clip)
		}

		// A deleted clip stays deleted even if its pipeline reports in later.
		seedClip(t, repo, "c3", "p1")
		if err := repo.DeleteClip(ctx, "c3"); err != nil {
			t.Fatal(err)
		}
		if err := repo.MarkClipReady(ctx, "c3", "/p.mp4", "/t.jpg"); err != nil {
			t.Fatal(err)
		}
		clip, err := repo.GetClip(ctx, "c3")
		if err != nil || clip != nil {
			t.Errorf("deleted clip came back: (%+v, %v)", clip, err)
		}
	})
}

func TestRepository_DeleteClipCascadesMarks(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")
		seedClip(t, repo, "c1", "p1")

		err := repo.CreateMark(ctx, &Mark{
			ID: "m1", ClipID: "c1", In: 1, Out: 2, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("CreateMark: %v", err)
		}

		if err := repo.DeleteClip(ctx, "c1"); err != nil {
			t.Fatalf("DeleteClip: %v", err)
		}

		marks, err := repo.ListMarksByClip(ctx, "c1")
		if err != nil || len(marks) != 0 {
			t.Errorf("marks after clip delete = (%d, %v), want 0", len(marks), err)
		}
	})
}

func TestRepository_MarksOrderedByCreation(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")
		seedClip(t, repo, "c1", "p1")

		base := time.Now().UTC().Truncate(time.Second)
		for i, id := range []string{"m1", "m2", "m3"} {
			err := repo.CreateMark(ctx, &Mark{
				ID: id, ClipID: "c1", In: float64(i), Out: float64(i + 1),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				t.Fatalf("CreateMark %s: %v", id, err)
			}
		}

		marks, err := repo.ListMarksByClip(ctx, "c1")
		if err != nil {
			t.Fatalf("ListMarksByClip: %v", err)
		}
		if len(marks) != 3 || marks[0].ID != "m1" || marks[2].ID != "m3" {
			t.Errorf("mark order wrong: %+v", marks)
		}
	})
}

func TestRepository_MarkOrderSurvivesTimestampTies(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")
		seedClip(t, repo, "c1", "p1")

		// Same CreatedAt for every mark, with ids that sort backwards, so
		// any fallback to timestamp or id ordering gets caught.
		at := ts("2024-03-01T09:00:00Z")
		for i, id := range []string{"zz-first", "mm-second", "aa-third"} {
			err := repo.CreateMark(ctx, &Mark{
				ID: id, ClipID: "c1", In: float64(i), Out: float64(i + 1), CreatedAt: at,
			})
			if err != nil {
				t.Fatalf("CreateMark %s: %v", id, err)
			}
		}

		marks, err := repo.ListMarksByClip(ctx, "c1")
		if err != nil {
			t.Fatalf("ListMarksByClip: %v", err)
		}
		if len(marks) != 3 {
			t.Fatalf("got %d marks, want 3", len(marks))
		}
		for i, want := range []string{"zz-first", "mm-second", "aa-third"} {
			if marks[i].ID != want {
				t.Errorf("marks[%d].ID = %s, want %s", i, marks[i].ID, want)
			}
		}
	})
}

func TestRepository_DeleteMarkIdempotent(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		if err := repo.DeleteMark(ctx, "never-existed"); err != nil {
			t.Errorf("DeleteMark on absent id: %v", err)
		}
	})
}

func TestRepository_FlagsAndCounts(t *testing.T) {
	repositoryImpls(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seedProject(t, repo, "p1")
		seedClip(t, repo, "c1", "p1")
		seedClip(t, repo, "c2", "p1")

		if err := repo.SetClipInclude(ctx, "c1", false); err != nil {
			t.Fatal(err)
		}
		if err := repo.SetClipOrder(ctx, "c1", 7); err != nil {
			t.Fatal(err)
		}
		if err := repo.MarkClipReady(ctx, "c2", "/p.mp4", "/t.jpg"); err != nil {
			t.Fatal(err)
		}

		clip, _ := repo.GetClip(ctx, "c1")
		if clip.IncludeInExport || clip.OrderIndex != 7 {
			t.Errorf("flags not persisted: %+v", clip)
		}

		counts, err := repo.CountClipsByStatus(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if counts[StatusProcessing] != 1 || counts[StatusReady] != 1 {
			t.Errorf("counts = %v", counts)
		}
	})
}
