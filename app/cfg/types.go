package cfg

type Cfg struct {
	// Storage configuration
	DBPath    string
	RedisAddr string

	// Application configuration
	Port         string
	BaseUrl      string
	WorkerCount  int
	APIAccessKey string
	ProxyURL     string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
