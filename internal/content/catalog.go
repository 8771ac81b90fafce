package content

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/remote/memory"
	"github.com/lumen-foundation/lumen/internal/remote/postgres"
	"github.com/lumen-foundation/lumen/internal/remote/sqlite"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// Backend names accepted by Source.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Source selects the backend every collection of a catalog is bound to.
// Exactly one of Postgres or SQLite must be set unless Backend is memory.
type Source struct {
	Backend  string
	Postgres postgres.Querier
	SQLite   *sql.DB
}

// Validate reports whether the source is usable.
func (s Source) Validate() error {
	switch s.Backend {
	case BackendPostgres:
		if s.Postgres == nil {
			return fmt.Errorf("content: postgres backend without a pool")
		}
	case BackendSQLite:
		if s.SQLite == nil {
			return fmt.Errorf("content: sqlite backend without a database")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("content: unknown backend %q", s.Backend)
	}
	return nil
}

// Collection binds table on src.
func Collection[T any](src Source, table string) remote.Collection[T] {
	switch src.Backend {
	case BackendPostgres:
		return postgres.New[T](src.Postgres, table)
	case BackendSQLite:
		return sqlite.New[T](src.SQLite, table)
	default:
		return memory.New[T](table)
	}
}

// Catalog holds one store per managed collection.
type Catalog struct {
	Projects         *resource.Store[Project]
	ProjectTasks     *resource.Store[ProjectTask]
	ProjectDocuments *resource.Store[ProjectDocument]
	News             *resource.Store[News]
	Events           *resource.Store[Event]
	TeamMembers      *resource.Store[TeamMember]
	Partners         *resource.Store[Partner]
	Testimonials     *resource.Store[Testimonial]
	Gallery          *resource.Store[GalleryItem]
	Publications     *resource.Store[Publication]
	FAQs             *resource.Store[FAQ]
	ContactMessages  *resource.Store[ContactMessage]
	Profiles         *resource.Store[Profile]

	Registry *resource.Registry
}

// Options tunes the stores a catalog builds.
type Options struct {
	Logger  *slog.Logger
	Metrics *resource.Metrics
	// RefreshLimit caps concurrent refreshes; zero means unlimited.
	RefreshLimit int
}

// NewCatalog builds a store for every collection on src.
func NewCatalog(src Source, opts Options) (*Catalog, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	reg := resource.NewRegistry(opts.RefreshLimit)
	return &Catalog{
		Projects:         bind[Project](reg, src, opts, capability.ResourceProjects),
		ProjectTasks:     bind[ProjectTask](reg, src, opts, capability.ResourceProjectTasks),
		ProjectDocuments: bind[ProjectDocument](reg, src, opts, capability.ResourceProjectDocuments),
		News:             bind[News](reg, src, opts, capability.ResourceNews),
		Events:           bind[Event](reg, src, opts, capability.ResourceEvents),
		TeamMembers:      bind[TeamMember](reg, src, opts, capability.ResourceTeamMembers),
		Partners:         bind[Partner](reg, src, opts, capability.ResourcePartners),
		Testimonials:     bind[Testimonial](reg, src, opts, capability.ResourceTestimonials),
		Gallery:          bind[GalleryItem](reg, src, opts, capability.ResourceGallery),
		Publications:     bind[Publication](reg, src, opts, capability.ResourcePublications),
		FAQs:             bind[FAQ](reg, src, opts, capability.ResourceFAQs),
		ContactMessages:  bind[ContactMessage](reg, src, opts, capability.ResourceContactMessages),
		Profiles:         bind[Profile](reg, src, opts, capability.ResourceProfiles),
		Registry:         reg,
	}, nil
}

func bind[T resource.Record](reg *resource.Registry, src Source, opts Options, table string) *resource.Store[T] {
	storeOpts := []resource.Option[T]{resource.WithNormalizer[T](Normalize[T])}
	if opts.Logger != nil {
		storeOpts = append(storeOpts, resource.WithLogger[T](opts.Logger))
	}
	if opts.Metrics != nil {
		storeOpts = append(storeOpts, resource.WithMetrics[T](opts.Metrics))
	}
	return resource.Register(reg, resource.New[T](Collection[T](src, table), storeOpts...))
}

// Close releases every store.
func (c *Catalog) Close() {
	c.Registry.Close()
}
