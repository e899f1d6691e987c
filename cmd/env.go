package cmd

import (
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	envRootKey     = "REFMIRROR_ROOT"
	envParallelKey = "REFMIRROR_PARALLEL"
)

var dotEnvKeys = []string{
	envRootKey,
	envParallelKey,
}

// loadDotEnv pulls refmirror settings from .env and .env.local files in the
// working directory into the environment, without overriding variables the
// caller already set.
func loadDotEnv() {
	orig := originalEnvKeys(dotEnvKeys)

	loadDotEnvFile(".env", orig)
	loadDotEnvFile(".env.local", orig)
}

func originalEnvKeys(keys []string) map[string]struct{} {
	orig := map[string]struct{}{}

	for _, key := range keys {
		if _, ok := os.LookupEnv(key); ok {
			orig[key] = struct{}{}
		}
	}

	return orig
}

func loadDotEnvFile(path string, orig map[string]struct{}) {
	env, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for _, key := range dotEnvKeys {
		val, ok := env[key]
		if !ok {
			continue
		}

		if _, ok := orig[key]; ok {
			continue
		}

		_ = os.Setenv(key, val)
	}
}

func envRoot() string {
	return os.Getenv(envRootKey)
}

func envParallel() int {
	if n, err := strconv.Atoi(os.Getenv(envParallelKey)); err == nil && n > 0 {
		return n
	}

	return runtime.NumCPU()
}
