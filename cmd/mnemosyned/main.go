// Command mnemosyned is the CLI front end over the cognitive memory
// engine: remember/recall/conflicts/status/serve, mirroring the reference
// codebase's cobra command registration style.
package main

func main() {
	Execute()
}
