// README: Common ID type shared across modules.
package types

type ID string
