//go:build !linux

package watcher

func detectFilesystemType(string) FilesystemType { return FSTypeUnknown }

func existingAncestor(path string) string { return path }
