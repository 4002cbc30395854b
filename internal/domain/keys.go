package domain

// KeyPrefix namespaces every storage key written by the service.
// Reassigned once at boot from storage.key_prefix, before any store access.
var KeyPrefix = "superbrain:"
