package syncer

import "github.com/livinlefevreloca/pkgstatus/internal/model"

// NormalizeBuild prepares a fetched build detail for storage in place and
// returns its port results, split off the build document. ports is nil when
// the detail carries none.
func NormalizeBuild(doc model.Document) (ports model.Document) {
	// Keyed by package names containing '.', which the document store
	// cannot hold. stats.skipped is unaffected.
	delete(doc, "skipped")

	if stats, ok := doc["stats"].(map[string]any); ok {
		for key, value := range stats {
			if n, ok := model.ToInt(value); ok {
				stats[key] = n
			}
		}
		stats["remaining"] = Remaining(stats)
	}

	if snap, ok := doc["snap"].(map[string]any); ok {
		for _, key := range []string{"now", "elapsed"} {
			if value, present := snap[key]; present {
				if n, ok := model.ToInt(value); ok {
					snap[key] = n
				}
			}
		}
	}

	if jobs, ok := doc["jobs"].([]any); ok {
		active := make([]any, 0, len(jobs))
		for _, job := range jobs {
			if m, ok := job.(map[string]any); ok && m["status"] == model.JobStatusIdle {
				continue
			}
			active = append(active, job)
		}
		doc["jobs"] = active
	}

	if p, ok := doc["ports"].(map[string]any); ok {
		ports = model.Document(p)
	}
	delete(doc, "ports")

	return ports
}

// Remaining computes queued - (built + failed + skipped + ignored). A missing
// or non-integer operand, usually from a crashed build, yields 0.
func Remaining(stats map[string]any) int64 {
	operand := func(key string) (int64, bool) {
		n, ok := stats[key].(int64)
		return n, ok
	}

	queued, ok := operand("queued")
	if !ok {
		return 0
	}
	done := int64(0)
	for _, key := range []string{"built", "failed", "skipped", "ignored"} {
		n, ok := operand(key)
		if !ok {
			return 0
		}
		done += n
	}
	return queued - done
}
