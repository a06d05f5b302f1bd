// Package lica converts between zip archives and lica containers.
//
// A lica container is a single flat JSON object that maps each archived
// file's slash-separated relative path to the standard, padded base64
// encoding of its bytes:
//
//	{"hello.txt":"aGk=","docs/readme.md":"IyBoaQ=="}
//
// Directories are never stored; they are implied by the keys and recreated
// on unpack.
//
// # Packing
//
// [Pack] reads the archive member by member and writes the container
// incrementally, so memory use does not depend on archive size:
//
//	res, err := lica.Pack(ctx, "site.zip", "site.lica")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Files, res.Digest)
//
// # Unpacking
//
// Two functionally equivalent paths are available. [UnpackBulk] parses the
// whole container in memory; [UnpackStream] decodes one pair at a time and
// holds at most one entry in memory. An [Unpacker] chooses between them once
// per call based on [Capabilities] resolved at startup:
//
//	u := lica.NewUnpacker(lica.DetectCapabilities(), lica.UnpackWithLogger(logger))
//	res, err := u.Unpack(ctx, "site.lica", "./out", true)
//
// Whole-operation failures ([ErrOpen], [ErrParse]) abort the run. A
// per-entry failure ([ErrDecode], [ErrWrite], [ErrUnsafePath]) is logged,
// recorded in [UnpackResult.Failed], and does not stop the remaining
// entries.
package lica
