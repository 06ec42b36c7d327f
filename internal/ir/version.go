package ir

// ToolVersion is the fnser release version.
const ToolVersion = "0.1.0"
