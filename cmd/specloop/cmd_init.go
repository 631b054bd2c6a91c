package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const defaultConfigTemplate = `name: {{.Name}}
description: Drive {{.Spec}} to passing tests
spec: {{.Spec}}
run_dir: runs
work_dir: .

fix_step: run-tests
max_fix_iterations: 3

proposer:
  # Reads a JSON failure report on stdin, answers with a patch-plan
  # JSON document on stdout.
  command: ${SPECLOOP_PROPOSER:-propose-fix}
  timeout: 10m

steps:
  - name: generate
    command: echo "generate code from $SPECLOOP_SPEC"
  - name: build
    command: go build ./...
  - name: run-tests
    command: go test ./...
    timeout: 5m
    recoverable: true
`

func initCmd(args []string) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	spec := fs.String("spec", "spec.md", "Path to the specification document")
	out := fs.String("o", "specloop.yaml", "Where to write the config")
	force := fs.Bool("force", false, "Overwrite an existing config")
	fs.Parse(args)

	if _, err := os.Stat(*out); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *out)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	tmpl := template.Must(template.New("config").Parse(defaultConfigTemplate))
	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()

	data := struct{ Name, Spec string }{Name: projectName(cwd), Spec: *spec}
	if err := tmpl.Execute(f, data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("Wrote %s\n", *out)
	fmt.Println("Edit the step commands, then: specloop run")
	return 0
}

func projectName(dir string) string {
	name := filepath.Base(dir)
	if name == "." || name == string(filepath.Separator) {
		return "pipeline"
	}
	return name
}
