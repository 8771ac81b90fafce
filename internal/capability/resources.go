package capability

// Content collections managed from the admin console.
const (
	ResourceProjects         = "projects"
	ResourceProjectTasks     = "project_tasks"
	ResourceProjectDocuments = "project_documents"
	ResourceNews             = "news"
	ResourceEvents           = "events"
	ResourceTeamMembers      = "team_members"
	ResourcePartners         = "partners"
	ResourceTestimonials     = "testimonials"
	ResourceGallery          = "gallery"
	ResourcePublications     = "publications"
	ResourceFAQs             = "faqs"
	ResourceContactMessages  = "contact_messages"
	ResourceProfiles         = "profiles"
)

// Scope renders the permission string for a resource action, e.g. "news.create".
func Scope(resource string, action Action) string {
	return resource + "." + string(action)
}
