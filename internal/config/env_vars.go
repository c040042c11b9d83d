package config

type EnvVars struct {
	AppName     string `env:"APP_NAME" envDefault:"IronIO OAuth"`
	DataFolder  string `env:"IRONIO_OAUTH_DATA_FOLDER" envDefault:"./data"`
	LogLevel    string `env:"IRONIO_OAUTH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"IRONIO_OAUTH_LOG_FORMAT" envDefault:"console"`
	CallbackURL string `env:"IRONIO_OAUTH_CALLBACK_URL"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetLogFormat is "console" or "json".
func (e EnvVars) GetLogFormat() string {
	return e.LogFormat
}

// GetCallbackURL is the URL requested with the access token once authorised.
func (e EnvVars) GetCallbackURL() string {
	return e.CallbackURL
}
