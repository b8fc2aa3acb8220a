package main

import (
	"flag"
	"log"
	"os"

	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
	"github.com/macropower/hermitlink/pkg/yaml"
)

var (
	outFile = flag.String("o", "schema.json", "Output file for the generated schema")
	srcDir  = flag.String("src", "../../..", "Module root, used to read doc comments")
)

func main() {
	flag.Parse()

	gen := yaml.NewSchemaGenerator(kernelconfigs.New(), "github.com/macropower/hermitlink", *srcDir)

	jsData, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
