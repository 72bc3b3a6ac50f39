package postgres

import (
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/config"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// Container holds all repositories over one database connection
type Container struct {
	db           *gorm.DB
	log          *log.Logger
	groupRepo    GroupRepository
	categoryRepo CategoryRepository
	eventRepo    EventRepository
	pendingRepo  PendingRepository
}

// NewContainer creates a new repository container with all repositories
// initialized, running migrations on the way up
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)

	if err := container.Health(); err != nil {
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:           db,
		log:          logger.Repository("postgres_container"),
		groupRepo:    NewPostgresGroupRepository(db),
		categoryRepo: NewPostgresCategoryRepository(db),
		eventRepo:    NewPostgresEventRepository(db),
		pendingRepo:  NewPostgresPendingRepository(db),
	}
}

// Groups returns the group repository
func (c *Container) Groups() GroupRepository {
	return c.groupRepo
}

// Categories returns the category repository
func (c *Container) Categories() CategoryRepository {
	return c.categoryRepo
}

// Events returns the event repository
func (c *Container) Events() EventRepository {
	return c.eventRepo
}

// Pending returns the pending-shard repository
func (c *Container) Pending() PendingRepository {
	return c.pendingRepo
}

// DB exposes the underlying connection
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Health performs a health check on the underlying connection
func (c *Container) Health() error {
	return HealthCheck(c.db)
}

// Close closes the underlying connection
func (c *Container) Close() error {
	return Close()
}
