package domain

// ProfileStorageKey is the fixed key the connection profile is stored under.
const ProfileStorageKey = "soarConfig"

// VersionPath is appended to the profile URL to build the probe endpoint.
const VersionPath = "/rest/version"

// Profile holds the credentials used to reach a SOAR server.
type Profile struct {
	URL                     string
	Username                string
	Password                string
	SSLVerificationDisabled bool
}

// VersionEndpoint appends VersionPath to the URL as typed. No slash or scheme
// normalization happens here.
func (p Profile) VersionEndpoint() string {
	return p.URL + VersionPath
}

func (p Profile) IsZero() bool {
	return p == Profile{}
}

// profileRecord is the stored JSON shape. sslVerification carries the
// "disable SSL verification" checkbox value.
type profileRecord struct {
	URL             string `json:"url" yaml:"url"`
	Username        string `json:"username" yaml:"username"`
	Password        string `json:"password" yaml:"password"`
	SSLVerification bool   `json:"sslVerification" yaml:"sslVerification"`
}

func recordFromProfile(p Profile) profileRecord {
	return profileRecord{
		URL:             p.URL,
		Username:        p.Username,
		Password:        p.Password,
		SSLVerification: p.SSLVerificationDisabled,
	}
}

func (r profileRecord) profile() Profile {
	return Profile{
		URL:                     r.URL,
		Username:                r.Username,
		Password:                r.Password,
		SSLVerificationDisabled: r.SSLVerification,
	}
}
