package domain

// KeyPrefix is the default namespace for every key the archive writes.
const KeyPrefix = "archivist:"
