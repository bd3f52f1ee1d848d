// Config holds the hub's runtime settings, generalizing the teacher's
// hub/config.go (string-keyed get/set with typed accessors and an
// alias table) to the key set SPEC_FULL.md §4.L adds, backed by
// spf13/viper the way cmd/go-hub/cmd/serve.go binds its Config struct.
package hub

import (
	"time"

	"github.com/spf13/viper"
)

const (
	KeyHubName    = "hub.name"
	KeyHubDesc    = "hub.desc"
	KeyHubTopic   = "hub.topic"
	KeyHubOwner   = "hub.owner"
	KeyHubWebsite = "hub.website"
	KeyHubEmail   = "hub.email"
	KeyHubMOTD    = "hub.motd"
	KeyHubPrivate = "hub.private"
	KeyBotName    = "bot.name"
	KeyBotDesc    = "bot.desc"

	KeyChatGlobalEnabled = "chat.global.enabled"
	KeyZlibLevel         = "zlib.level"

	KeyUsersMax         = "hub.users.max"
	KeyUsersMaxPerIP    = "hub.users.max-per-ip"
	KeySendBufMax       = "hub.sendbuf.max"
	KeyRecvBufMax       = "hub.recvbuf.max"
	KeyCredentialsMin   = "hub.credentials.min-login"
	KeyTLSALPN          = "hub.tls.alpn"
	KeyTLSRequired      = "hub.tls.required"
	KeyTLSCert          = "hub.tls.cert"
	KeyTLSKey           = "hub.tls.key"
	KeyProbeNMDCRedirect = "probe.nmdc-redirect"
	KeyProbeHTTPRedirect = "probe.http-redirect"

	KeyServeHost = "serve.host"
	KeyServePort = "serve.port"
)

var aliases = map[string]string{
	"name":    KeyHubName,
	"desc":    KeyHubDesc,
	"topic":   KeyHubTopic,
	"owner":   KeyHubOwner,
	"website": KeyHubWebsite,
	"email":   KeyHubEmail,
	"motd":    KeyHubMOTD,
	"private": KeyHubPrivate,
	"botname": KeyBotName,
	"botdesc": KeyBotDesc,
}

// Config wraps a viper instance with the defaults and key aliases
// this hub needs.
type Config struct {
	v *viper.Viper
}

// NewConfig builds a Config with SPEC_FULL.md §4.L's defaults set.
func NewConfig() *Config {
	v := viper.New()
	v.SetDefault(KeyHubName, "ADC Hub")
	v.SetDefault(KeyHubDesc, "")
	v.SetDefault(KeyHubTopic, "")
	v.SetDefault(KeyHubPrivate, false)
	v.SetDefault(KeyBotName, "Hub-Security")
	v.SetDefault(KeyChatGlobalEnabled, true)
	v.SetDefault(KeyZlibLevel, 0)
	v.SetDefault(KeyUsersMax, 500)
	v.SetDefault(KeyUsersMaxPerIP, 4)
	v.SetDefault(KeySendBufMax, 1<<20)
	v.SetDefault(KeyRecvBufMax, 1<<16)
	v.SetDefault(KeyCredentialsMin, "guest")
	v.SetDefault(KeyTLSALPN, "adc")
	v.SetDefault(KeyTLSRequired, false)
	v.SetDefault(KeyTLSCert, "hub.cert")
	v.SetDefault(KeyTLSKey, "hub.key")
	v.SetDefault(KeyProbeNMDCRedirect, "")
	v.SetDefault(KeyProbeHTTPRedirect, "")
	v.SetDefault(KeyServeHost, "")
	v.SetDefault(KeyServePort, 1511)
	return &Config{v: v}
}

func (c *Config) resolve(key string) string {
	if a, ok := aliases[key]; ok {
		return a
	}
	return key
}

// Get returns the raw value for key (or its alias).
func (c *Config) Get(key string) interface{} { return c.v.Get(c.resolve(key)) }

// Set assigns val to key (or its alias), overriding any file/default value.
func (c *Config) Set(key string, val interface{}) { c.v.Set(c.resolve(key), val) }

func (c *Config) GetString(key string) string { return c.v.GetString(c.resolve(key)) }
func (c *Config) GetInt(key string) int       { return c.v.GetInt(c.resolve(key)) }
func (c *Config) GetBool(key string) bool     { return c.v.GetBool(c.resolve(key)) }
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(c.resolve(key))
}

// ReadFile loads YAML configuration from path, merging over defaults.
func (c *Config) ReadFile(path string) error {
	c.v.SetConfigFile(path)
	c.v.SetConfigType("yaml")
	return c.v.ReadInConfig()
}

// Viper exposes the underlying *viper.Viper (cmd/adchubd's init
// command writes the default configuration file through it).
func (c *Config) Viper() *viper.Viper { return c.v }
