// Package animgif turns batches of raw RGBA frames into animated GIF89a
// streams, quantizing in the OKLab perceptual color space.
//
// The pipeline converts every frame to OKLab, builds a palette by median
// cut over the pooled samples, maps pixels through a selectable dithering
// strategy (temporal error diffusion, blue noise, or plain nearest
// matching), and assembles the indexed frames into a GIF89a container
// with the NETSCAPE looping extension. A batch can additionally be packed
// into a frame-major RGBA voxel tensor for volumetric processing; the
// voxel and yxv packages operate on those tensors.
//
// Basic usage:
//
//	res, err := animgif.Process(frames, width, height, frameCount, nil)
//	if err != nil {
//		...
//	}
//	os.WriteFile("out.gif", res.GIF, 0o644)
//
// Reuse a Processor to keep options and dither state across batches:
//
//	p := animgif.NewProcessor(&animgif.Options{
//		PaletteSize: 64,
//		Dither:      animgif.DitherBlueNoiseTemporal,
//	})
//	defer p.Close()
//	res, err := p.Process(frames, width, height, frameCount)
package animgif
