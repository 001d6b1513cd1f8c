// Package config holds the application settings and their YAML loading.
//
// Settings are read from config.yaml via viper, with every field backed
// by a default so the tool runs without any file present:
//
//	settings, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(settings.Download.ImageWorkers)
//
// The download engine itself only consumes values from Settings; it never
// touches viper or the file system.
package config
