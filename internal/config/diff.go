package config

// ConfigDiff describes what changed between two configs: the log level, any
// field of the Gradio section, and the bouquet list. Transport settings are
// not compared.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	GradioTimeoutsChanged bool

	BouquetsChanged bool
	BouquetChanges  []BouquetDiff
}

// BouquetDiff describes what changed for a single named bouquet between two
// configs.
type BouquetDiff struct {
	Name    string
	Added   bool
	Removed bool
	Changed bool
}

// Diff compares old and new configs and reports what changed in the log
// level, the Gradio section and the bouquets. The Transport section is not
// compared; a running transport keeps the timings it was built with.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Gradio != new.Gradio {
		d.GradioTimeoutsChanged = true
	}

	oldBouquets := make(map[string]BouquetConfig, len(old.Bouquets))
	for _, b := range old.Bouquets {
		oldBouquets[b.Name] = b
	}
	newBouquets := make(map[string]BouquetConfig, len(new.Bouquets))
	for _, b := range new.Bouquets {
		newBouquets[b.Name] = b
	}

	for name, ob := range oldBouquets {
		nb, exists := newBouquets[name]
		if !exists {
			d.BouquetChanges = append(d.BouquetChanges, BouquetDiff{Name: name, Removed: true})
			d.BouquetsChanged = true
			continue
		}
		if !slicesEqual(ob.BuiltInTools, nb.BuiltInTools) || !slicesEqual(ob.GradioSpaces, nb.GradioSpaces) {
			d.BouquetChanges = append(d.BouquetChanges, BouquetDiff{Name: name, Changed: true})
			d.BouquetsChanged = true
		}
	}
	for name := range newBouquets {
		if _, exists := oldBouquets[name]; !exists {
			d.BouquetChanges = append(d.BouquetChanges, BouquetDiff{Name: name, Added: true})
			d.BouquetsChanged = true
		}
	}

	return d
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
