package repository_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	taskrepo "github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/cache"
	"github.com/developer-mesh/task-manager/pkg/database"
	"github.com/developer-mesh/task-manager/pkg/models"
	"github.com/developer-mesh/task-manager/pkg/observability"
	"github.com/developer-mesh/task-manager/pkg/repository"
)

var dbCounter int

func openSQLiteStore(ctx context.Context) (*database.Database, taskrepo.TaskRepository) {
	dbCounter++
	db, err := database.NewDatabase(ctx, database.Config{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:task_store_spec_%d?mode=memory&cache=shared", dbCounter),
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(db.InitializeTables(ctx)).To(Succeed())
	return db, repository.NewTaskRepository(db.GetDB())
}

// storeBehaviour describes what every TaskRepository must do, whatever sits in front of SQL
func storeBehaviour(build func(ctx context.Context, inner taskrepo.TaskRepository) taskrepo.TaskRepository) {
	var (
		ctx   context.Context
		db    *database.Database
		store taskrepo.TaskRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		var inner taskrepo.TaskRepository
		db, inner = openSQLiteStore(ctx)
		store = build(ctx, inner)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("starts empty", func() {
		tasks, err := store.FindAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(BeEmpty())
	})

	It("assigns distinct ids on insert", func() {
		a, err := store.Save(ctx, &models.Task{Title: "A"})
		Expect(err).NotTo(HaveOccurred())
		b, err := store.Save(ctx, &models.Task{Title: "B"})
		Expect(err).NotTo(HaveOccurred())

		Expect(a.ID).NotTo(BeZero())
		Expect(b.ID).NotTo(Equal(a.ID))
	})

	It("round-trips every field", func() {
		saved, err := store.Save(ctx, &models.Task{Title: "A", Description: "B", Completed: true})
		Expect(err).NotTo(HaveOccurred())

		found, err := store.FindByID(ctx, saved.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*found).To(Equal(models.Task{ID: saved.ID, Title: "A", Description: "B", Completed: true}))
	})

	It("overwrites an existing row on save with its id", func() {
		saved, err := store.Save(ctx, &models.Task{Title: "A"})
		Expect(err).NotTo(HaveOccurred())

		merged := models.ApplyUpdate(*saved, models.TaskUpdate{Title: "X", Description: "Y", Completed: true})
		_, err = store.Save(ctx, &merged)
		Expect(err).NotTo(HaveOccurred())

		found, err := store.FindByID(ctx, saved.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found.Title).To(Equal("X"))
		Expect(found.Completed).To(BeTrue())

		all, err := store.FindAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
	})

	It("reports missing tasks", func() {
		_, err := store.FindByID(ctx, 999)
		Expect(err).To(MatchError(taskrepo.ErrNotFound))

		exists, err := store.ExistsByID(ctx, 999)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("forgets deleted tasks", func() {
		saved, err := store.Save(ctx, &models.Task{Title: "A"})
		Expect(err).NotTo(HaveOccurred())
		_, err = store.FindByID(ctx, saved.ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.DeleteByID(ctx, saved.ID)).To(Succeed())

		exists, err := store.ExistsByID(ctx, saved.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())

		_, err = store.FindByID(ctx, saved.ID)
		Expect(err).To(MatchError(taskrepo.ErrNotFound))
	})
}

var _ = Describe("SQL task store", func() {
	storeBehaviour(func(_ context.Context, inner taskrepo.TaskRepository) taskrepo.TaskRepository {
		return inner
	})
})

var _ = Describe("Cached task store over an in-memory LRU", func() {
	storeBehaviour(func(_ context.Context, inner taskrepo.TaskRepository) taskrepo.TaskRepository {
		c, err := cache.NewMemoryCache(100)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(c.Close)
		return repository.NewCachedTaskRepository(inner, c, 0, observability.NewNoopLogger())
	})
})
