// Package elfsym finds a vmod's data record in an ELF shared object.
//
// The host runtime loads a vmod by looking up the exported symbol
// Vmod_<name>_Data. Locate performs the same lookup on a raw file image
// and returns the file offset of the record together with the pointer
// width and byte order needed to decode it:
//
//	loc, err := elfsym.Locate(image, "std")
//	if err != nil {
//	    return err
//	}
//	d, err := descriptor.DecodeLayout(image, loc.Offset, loc.Layout)
package elfsym
