// Command gen-config-schema regenerates config/schema.json from the
// configuration struct tags. Run it after changing internal/config types.
package main

import (
	"log"
	"os"

	"github.com/jsforge/bundle-pipeline/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s path/to/schema.json", os.Args[0])
	}
	bs, err := config.ReflectSchema()
	if err != nil {
		log.Fatalf("reflect schema: %v", err)
	}
	if err := os.WriteFile(os.Args[1], bs, 0644); err != nil {
		log.Fatalf("write schema: %v", err)
	}
}
