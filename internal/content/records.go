// Package content declares one record type per managed collection. Every
// column except id is optional because the hosted schema is not strictly
// enforced; absent fields are left out of writes.
package content

// ProjectStatus tracks a project through its lifecycle.
type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// TaskStatus is the state of a project task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Project is a programme run by the foundation.
type Project struct {
	ID          int64          `json:"id"`
	Title       *string        `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Slug        *string        `json:"slug,omitempty" validate:"omitempty,max=200"`
	Summary     *string        `json:"summary,omitempty" validate:"omitempty,max=500"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planned active completed archived"`
	Category    *string        `json:"category,omitempty" validate:"omitempty,max=100"`
	Location    *string        `json:"location,omitempty" validate:"omitempty,max=200"`
	CoverImage  *string        `json:"cover_image,omitempty" validate:"omitempty,url"`
	Budget      *float64       `json:"budget,omitempty" validate:"omitempty,gte=0"`
	StartDate   *Timestamp     `json:"start_date,omitempty"`
	EndDate     *Timestamp     `json:"end_date,omitempty"`
	// Documents is the legacy attachment column: a JSON array of references
	// or a single bare reference. New rows keep attachments in
	// project_documents instead.
	Documents *string    `json:"documents,omitempty" validate:"omitempty,utf8"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// ProjectTask is a unit of work inside a project.
type ProjectTask struct {
	ID          int64       `json:"id"`
	ProjectID   *int64      `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done"`
	Assignee    *string     `json:"assignee,omitempty" validate:"omitempty,max=120"`
	DueDate     *Timestamp  `json:"due_date,omitempty"`
	Position    *int        `json:"position,omitempty" validate:"omitempty,gte=0"`
	CreatedAt   *Timestamp  `json:"created_at,omitempty"`
}

// ProjectDocument is one attachment of a project.
type ProjectDocument struct {
	ID        int64      `json:"id"`
	ProjectID *int64     `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	Title     *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	URL       *string    `json:"url,omitempty" validate:"omitempty,min=1,max=2048,utf8"`
	Kind      *string    `json:"kind,omitempty" validate:"omitempty,max=40"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// News is a published article.
type News struct {
	ID          int64      `json:"id"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Slug        *string    `json:"slug,omitempty" validate:"omitempty,max=200"`
	Excerpt     *string    `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	Body        *string    `json:"body,omitempty"`
	CoverImage  *string    `json:"cover_image,omitempty" validate:"omitempty,url"`
	Author      *string    `json:"author,omitempty" validate:"omitempty,max=120"`
	Published   *bool      `json:"published,omitempty"`
	PublishedAt *Timestamp `json:"published_at,omitempty"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}

// Event is a dated public activity.
type Event struct {
	ID              int64      `json:"id"`
	Title           *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string    `json:"description,omitempty"`
	Location        *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	StartsAt        *Timestamp `json:"starts_at,omitempty"`
	EndsAt          *Timestamp `json:"ends_at,omitempty"`
	RegistrationURL *string    `json:"registration_url,omitempty" validate:"omitempty,url"`
	CoverImage      *string    `json:"cover_image,omitempty" validate:"omitempty,url"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
}

// TeamMember is a staff or board member shown on the about page.
type TeamMember struct {
	ID        int64      `json:"id"`
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Position  *string    `json:"position,omitempty" validate:"omitempty,max=120"`
	Bio       *string    `json:"bio,omitempty"`
	PhotoURL  *string    `json:"photo_url,omitempty" validate:"omitempty,url"`
	Email     *string    `json:"email,omitempty" validate:"omitempty,email"`
	SortOrder *int       `json:"sort_order,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Partner is a supporting organisation.
type Partner struct {
	ID          int64      `json:"id"`
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	LogoURL     *string    `json:"logo_url,omitempty" validate:"omitempty,url"`
	Website     *string    `json:"website,omitempty" validate:"omitempty,url"`
	Description *string    `json:"description,omitempty"`
	Tier        *string    `json:"tier,omitempty" validate:"omitempty,max=40"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}

// Testimonial is a quote from a beneficiary or partner.
type Testimonial struct {
	ID        int64      `json:"id"`
	Author    *string    `json:"author,omitempty" validate:"omitempty,min=1,max=120"`
	Role      *string    `json:"role,omitempty" validate:"omitempty,max=120"`
	Quote     *string    `json:"quote,omitempty" validate:"omitempty,max=2000"`
	PhotoURL  *string    `json:"photo_url,omitempty" validate:"omitempty,url"`
	Approved  *bool      `json:"approved,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// GalleryItem is one image in the public gallery.
type GalleryItem struct {
	ID        int64      `json:"id"`
	Title     *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	ImageURL  *string    `json:"image_url,omitempty" validate:"omitempty,url"`
	Caption   *string    `json:"caption,omitempty" validate:"omitempty,max=500"`
	Album     *string    `json:"album,omitempty" validate:"omitempty,max=120"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Publication is a downloadable report or paper.
type Publication struct {
	ID          int64      `json:"id"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Summary     *string    `json:"summary,omitempty"`
	FileURL     *string    `json:"file_url,omitempty" validate:"omitempty,url"`
	Category    *string    `json:"category,omitempty" validate:"omitempty,max=100"`
	PublishedAt *Timestamp `json:"published_at,omitempty"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}

// FAQ is a question and answer pair.
type FAQ struct {
	ID        int64      `json:"id"`
	Question  *string    `json:"question,omitempty" validate:"omitempty,min=1,max=500"`
	Answer    *string    `json:"answer,omitempty"`
	Category  *string    `json:"category,omitempty" validate:"omitempty,max=100"`
	SortOrder *int       `json:"sort_order,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// ContactMessage is an enquiry submitted through the public contact form.
type ContactMessage struct {
	ID        int64      `json:"id"`
	Name      *string    `json:"name,omitempty" validate:"omitempty,max=120"`
	Email     *string    `json:"email,omitempty" validate:"omitempty,email"`
	Subject   *string    `json:"subject,omitempty" validate:"omitempty,max=200"`
	Message   *string    `json:"message,omitempty" validate:"omitempty,max=5000"`
	Handled   *bool      `json:"handled,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Profile links an authenticated actor to a role.
type Profile struct {
	ID          int64      `json:"id"`
	ActorID     *string    `json:"actor_id,omitempty" validate:"omitempty,max=64"`
	Role        *string    `json:"role,omitempty" validate:"omitempty,max=40"`
	DisplayName *string    `json:"display_name,omitempty" validate:"omitempty,max=120"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}

func (r Project) RowID() int64         { return r.ID }
func (r ProjectTask) RowID() int64     { return r.ID }
func (r ProjectDocument) RowID() int64 { return r.ID }
func (r News) RowID() int64            { return r.ID }
func (r Event) RowID() int64           { return r.ID }
func (r TeamMember) RowID() int64      { return r.ID }
func (r Partner) RowID() int64         { return r.ID }
func (r Testimonial) RowID() int64     { return r.ID }
func (r GalleryItem) RowID() int64     { return r.ID }
func (r Publication) RowID() int64     { return r.ID }
func (r FAQ) RowID() int64             { return r.ID }
func (r ContactMessage) RowID() int64  { return r.ID }
func (r Profile) RowID() int64         { return r.ID }

// Done reports whether the task is finished.
func (r ProjectTask) Done() bool {
	return r.Status != nil && *r.Status == TaskDone
}

// Parent returns the owning project id, or 0.
func (r ProjectTask) Parent() int64 {
	if r.ProjectID == nil {
		return 0
	}
	return *r.ProjectID
}
