package id

import "encoding/base32"

// base32NoPad is RFC4648 base32 without padding, used for the ObjectId
// "clw_" display form (§6). The doc's "lowercase base32" requirement is
// satisfied by lower-casing the encoder's output at the call site,
// since encoding/base32's alphabet is upper-case only.
var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)
