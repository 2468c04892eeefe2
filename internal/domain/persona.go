package domain

// PersonaName identifies one of the fixed simulated customer archetypes.
type PersonaName string

const (
	PersonaBusyBrenda PersonaName = "Busy Brenda"
	PersonaHungryHiro PersonaName = "Hungry Hiro"
	PersonaUrbanUro   PersonaName = "Urban Uro"
)

// Persona is a static customer profile used as system-prompt context.
type Persona struct {
	Name        PersonaName
	Icon        string
	Tagline     string
	Color       string
	Description string

	// Profile is the full behavioral profile sent to the LLM.
	Profile string
}

// PersonaRegistry is the ordered, immutable set of personas known to the process.
type PersonaRegistry interface {
	All() []Persona
	Get(name PersonaName) (Persona, bool)
}
