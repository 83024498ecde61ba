package flow

// ServiceType selects the verification service a session runs against.
type ServiceType string

const (
	// ServiceIndividual verifies a natural person.
	ServiceIndividual ServiceType = "individual"
	// ServiceCorporate verifies a legal entity.
	ServiceCorporate ServiceType = "corporate"
)

func (s ServiceType) valid() bool {
	return s == ServiceIndividual || s == ServiceCorporate
}

// Default verification endpoints, one per service type.
const (
	DefaultIndividualBaseURL = "https://verify.verikit.io/individual"
	DefaultCorporateBaseURL  = "https://verify.verikit.io/corporate"
)

// SessionConfig identifies the verification session a flow embeds. Immutable
// after construction.
type SessionConfig struct {
	SessionID string
	Service   ServiceType
	BaseURL   string
}

// Mode selects the flow presentation.
type Mode string

const (
	// ModeModal presents the flow as a full-screen overlay, shown on an
	// explicit OpenSession call.
	ModeModal Mode = "modal"
	// ModeEmbed presents the flow inline inside a host-provided mount point,
	// mounted automatically and revealed once the flow is ready.
	ModeEmbed Mode = "embed"
)

// Colors customizes the remote flow's theme. Zero values are omitted from the
// configuration URL.
type Colors struct {
	Primary   string
	Secondary int
}

// DisplayOptions configures presentation. Supplied once via Init; the
// Set* mutators on Flow may adjust Language, Tier, and Colors between opens.
type DisplayOptions struct {
	Mode         Mode
	MountPointID string
	Language     string // defaults to "en" at URL-build time
	Tier         int    // zero means no tier restriction
	Colors       Colors
}
