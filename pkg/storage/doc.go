// Package storage provides the PostgreSQL persistence layer.
//
// UserStore is the session store adapter for the auth core: besides plain
// account CRUD it owns the refresh_token column, the single persisted copy
// of the currently valid refresh token per account. RotateRefreshToken is a
// conditional compare-and-swap so concurrent rotations with the same
// presented token cannot both win.
//
// TopicStore is representative of the rest of the platform's persistence:
// integer-keyed rows with get/list/create/delete/count operations and no
// protocol logic of its own.
package storage
