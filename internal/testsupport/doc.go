// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, stub binaries on PATH, file writers, and an opened catalog.
package testsupport
