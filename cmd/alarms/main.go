package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"keywatch/internal/dto"
	"keywatch/internal/model"
	"keywatch/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/alarms.db", "Database path")
	limit := flag.Int("limit", 20, "Number of recent events to show")
	kind := flag.String("kind", "", "Only show events of this kind (sounded, silenced, playback_failed)")
	since := flag.Duration("since", 0, "Only show events newer than this, e.g. 24h")
	clear := flag.Bool("clear", false, "Delete all journalled events")
	flag.Parse()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewAlarmRepository(db)

	if *clear {
		if err := repo.DeleteAll(); err != nil {
			log.Fatalf("Failed to clear journal: %v", err)
		}
		fmt.Println("✅ Alarm journal cleared")
		return
	}

	filter := &dto.AlarmFilter{Kind: *kind, Limit: *limit}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}

	events, err := repo.GetRecent(filter)
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}

	if len(events) == 0 {
		fmt.Println("No alarm events found")
	} else {
		fmt.Printf("🔔 %d most recent alarm events:\n", len(events))
		for _, ev := range events {
			line := fmt.Sprintf("   %s  %-16s empty for %-6s episode %s",
				ev.At.Local().Format("2006-01-02 15:04:05"), ev.Kind,
				ev.EmptyFor.Truncate(time.Second), shortID(ev.EpisodeID.String()))
			if ev.Detail != "" {
				line += "  (" + ev.Detail + ")"
			}
			fmt.Println(line)
		}
	}

	counts, err := repo.CountByKind()
	if err == nil {
		fmt.Printf("\n📊 Journal Statistics:\n")
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("      - %s: %d\n", k, counts[model.AlarmKind(k)])
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
