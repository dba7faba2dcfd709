package config

import "github.com/joho/godotenv"

// LoadEnv loads environment variables from a .env file in the working
// directory. The returned error satisfies os.IsNotExist when no file is
// present, so callers can continue without one.
func LoadEnv() error {
	return godotenv.Load()
}
