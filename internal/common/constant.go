package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token in AuthorizationHeaderName values.
const BearerPrefix = "Bearer "

// DefaultAppProtocol is the custom URI scheme handled by the desktop client.
const DefaultAppProtocol = "codex"

// RootFolderTitle is the title given to a freshly created root folder.
const RootFolderTitle = "Root Folder"
