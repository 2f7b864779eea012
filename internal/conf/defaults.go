// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("datapath", "data")
	viper.SetDefault("outputpath", "output")

	viper.SetDefault("taxonomy.enabled", true)
	viper.SetDefault("taxonomy.baseurl", "https://api.gbif.org/v1")
	viper.SetDefault("taxonomy.locale", "en")
	viper.SetDefault("taxonomy.cachefile", "resolved_names.csv")
	viper.SetDefault("taxonomy.maxretries", 3)
	viper.SetDefault("taxonomy.backoffdelay", 500*time.Millisecond)
	viper.SetDefault("taxonomy.ratelimitcooldown", 2*time.Second)
	viper.SetDefault("taxonomy.requestinterval", 500*time.Millisecond)
	viper.SetDefault("taxonomy.timeout", 10*time.Second)

	viper.SetDefault("enrichment.enabled", true)
	viper.SetDefault("enrichment.baseurl", "https://zenodo.org")
	viper.SetDefault("enrichment.timeout", 30*time.Second)

	viper.SetDefault("export.sqlite.enabled", false)
	viper.SetDefault("export.sqlite.path", "soundset.db")

	viper.SetDefault("fetch.timeout", 30*time.Minute)

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.path", "soundset.log")
}
