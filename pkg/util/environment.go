package util

import (
	"os"
	"strings"
)

const environmentPrefix = "RASTREOBUS_"

// GetEnvironmentVariables returns the RASTREOBUS_ prefixed environment as a
// map. Unrelated process variables never reach configuration lookups.
func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		if strings.HasPrefix(pair[0], environmentPrefix) {
			environmentVariables[pair[0]] = pair[1]
		}
	}

	return environmentVariables
}
