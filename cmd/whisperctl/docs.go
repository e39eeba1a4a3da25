package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate docs.
//
// @title           whisperctl API
// @version         1.0
// @description     Status API for Whisper model deployments on Triton.
//
// @contact.name   whisperctl maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
