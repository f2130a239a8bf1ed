// Package arcontent coordinates AR projects and resources across a metadata
// repository and a blob store.
//
// A resource bundles a thumbnail, a set of three marker files and either an
// image and sound pair or a video URL. Metadata rows live in a Repository,
// payload bytes in a BlobStore. The Service validates input and writes both
// halves as one logical operation.
//
// Basic usage:
//
//	repo := memory.New()
//	blobs := memorystorage.New(64 << 20)
//
//	svc, err := arcontent.New(
//		arcontent.WithRepository(repo),
//		arcontent.WithBlobStore(blobs),
//		arcontent.WithAudioSniffer(audio.NewSniffer()),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	projectID, err := svc.CreateProject(ctx, "museum-hall-a")
//	view, err := svc.CreateResource(ctx, projectID, arcontent.CreateResourceRequest{
//		Name:      "mona-lisa",
//		Thumbnail: thumbBase64,
//		Video:     "https://videos.example.com/mona.mp4",
//		Marker1:   isetBase64,
//		Marker2:   fsetBase64,
//		Marker3:   fset3Base64,
//	})
//
// Errors carry one of the kinds ErrInvalidName, ErrInvalidID, ErrNotFound,
// ErrInvalidParameter, ErrInvalidState or ErrIOFailure. Match them with
// errors.Is.
package arcontent
