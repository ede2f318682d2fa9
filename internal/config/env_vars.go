package config

import "strings"

const (
	defaultAppName = "Distritherm Admin"
	envDev         = "DEV"
)

type EnvVars struct {
	AppName string `envconfig:"APP_NAME" default:"Distritherm Admin"`
	Env     string `envconfig:"ENV" default:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return envDev
	}
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.GetEnv(), envDev)
}
