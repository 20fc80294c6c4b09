package main

import (
	"os"

	"intellimind/backend/internal/app"
)

// @title           IntelliMind API
// @version         1.0
// @description     Multi-session chat backend in front of a language model.
// @host            localhost:8000
// @BasePath        /api
func main() {
	os.Exit(app.Run())
}
