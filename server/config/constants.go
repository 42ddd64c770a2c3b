package config

// Network defaults
const (
	// HTTP API port, kept away from the usual 8080/3000/5000 development ports
	HTTP_SERVER_PORT = 2847

	DEFAULT_SERVER_ADDRESS = "0.0.0.0"
	LOCALHOST_ADDRESS      = "127.0.0.1"
)

// Transfer and media defaults
const (
	DEFAULT_EXPORT_PAGE_SIZE      = 1000
	DEFAULT_VALIDATION_CHUNK_SIZE = 500
	DEFAULT_DELETE_CONCURRENCY    = 4
	DEFAULT_LIST_LIMIT            = 1000
	DEFAULT_SHEET_RANGE           = "A:Z"
	DEFAULT_STORAGE_REGION        = "us-east-1"
	DEFAULT_CONFIG_FILE           = "promptvalley.yml"
	DEFAULT_OBJECTS_PATH          = "./data/objects"
	ENV_PREFIX                    = "PROMPTVALLEY_"
)

// Storage backends
const (
	STORAGE_BACKEND_MEMORY     = "memory"
	STORAGE_BACKEND_FILESYSTEM = "filesystem"
	STORAGE_BACKEND_MINIO      = "minio"
)

// Port validation constants
const (
	MIN_PORT = 1
	MAX_PORT = 65535
)

// IsValidPort checks if a port number is within valid range
func IsValidPort(port int) bool {
	return port >= MIN_PORT && port <= MAX_PORT
}
