package service

import (
	"fmt"
	"os"
	"strings"

	"campusblogs/app/config"
	"campusblogs/app/docstore"
	"campusblogs/app/logging"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = config.EnvPrefix + "CONFIG"

// loadConfig reads the config file named by path, or by $CAMPUSBLOGS_CONFIG
// when path is empty, and configures logging from it.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	logging.Setup(cfg.Log)
	return cfg, nil
}

func openStore(cfg config.StoreConfig) (*docstore.BadgerStore, error) {
	return docstore.Open(docstore.Options{
		Path:            cfg.Path,
		InMemory:        cfg.InMemory,
		ConflictRetries: cfg.ConflictRetries,
	})
}

func storeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// confirm asks a yes/no question on stdout and reads the answer from stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	var response string
	fmt.Scanln(&response)
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}
