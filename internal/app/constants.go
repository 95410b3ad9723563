package app

const (
	Name            = "soarlink"
	ConfigFilename  = "config.json"
	DBFilename      = "app.db"
	LogFilename     = "app.log"
	KeyFilename     = "credentials.key"
	NotifyTitleTest = "SOAR connection test"
)
