package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `
logLevel: debug
db:
  host: 10.0.0.1
  port: "5433"
`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, "{}\n")))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./itntlogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "itnt", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still usable
	assert.Equal(t, "entity", GetHologramConfig().Provider)
}

func TestReload_PicksUpChanges(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, "logLevel: info\n")
	require.NoError(t, Load(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("logLevel: warn\n"), 0644))

	require.NoError(t, Reload())
	assert.Equal(t, "warn", GetString("logLevel"))
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetHologramConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, "{}\n")))
	hc := GetHologramConfig()
	assert.True(t, hc.Enabled)
	assert.Equal(t, "&#FF6347%name% &f- &e%time%s", hc.Format)
	assert.Equal(t, 0.8, hc.OffsetY)
	assert.Equal(t, "entity", hc.Provider)

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `
hologram:
  enabled: false
  offset-y: 1.25
  provider: stream
  stream:
    url: ws://labels.local/ws
    secret: s3cret
`)))
	hc = GetHologramConfig()
	assert.False(t, hc.Enabled)
	assert.Equal(t, 1.25, hc.OffsetY)
	assert.Equal(t, "stream", hc.Provider)
	assert.Equal(t, "ws://labels.local/ws", hc.Stream.URL)
	assert.Equal(t, "s3cret", hc.Stream.Secret)
}

func TestGetEngineConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, "engine:\n  tickLength: 10ms\n")))
	ec := GetEngineConfig()
	assert.Equal(t, 10*time.Millisecond, ec.TickLength)
	assert.Equal(t, 100*time.Millisecond, ec.ZoneLifetime)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, "{}\n")))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./journal", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `
storage:
  type: sqlite
  memory:
    outputDir: /tmp/out
    compressOutput: false
  sqlite:
    path: /tmp/itnt.db
    dumpInterval: 10m
  websocket:
    url: ws://collector/ws
`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, "/tmp/itnt.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://collector/ws", sc.Websocket.URL)
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, "{}\n")))
	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "itnt", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, true, cfg.Insecure)

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `
otel:
  enabled: true
  serviceName: my-service
  batchTimeout: 30s
  endpoint: localhost:4317
  insecure: false
`)))
	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `
influx:
  enabled: true
  bucket: explosives
graylog:
  enabled: true
  address: graylog:12201
`)))
	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "explosives", ic.Bucket)
	assert.Equal(t, "itnt-metrics", ic.Org)

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "graylog:12201", gc.Address)
}

func TestGetMessages(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `
messages:
  prefix: "&7[X] "
  reload: "&aDone"
`)))
	msgs := GetMessages()
	assert.Equal(t, "&7[X] ", msgs["prefix"])
	assert.Equal(t, "&aDone", msgs["reload"])
}
