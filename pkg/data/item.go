package data

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	ItemSong ItemKind = iota
	ItemJob
)

// Item is a row shown by list views: either a catalog song or a download job.
type Item struct {
	Kind ItemKind
	Song Song
	Job  DownloadJob
}

// SongItem wraps a catalog song.
func SongItem(s Song) Item {
	return Item{Kind: ItemSong, Song: s}
}

// JobItem wraps a download job.
func JobItem(j DownloadJob) Item {
	return Item{Kind: ItemJob, Job: j}
}

func (i Item) Key() string {
	if i.Kind == ItemJob {
		return i.Job.Key()
	}
	return i.Song.Key()
}

func (i Item) ID() string {
	if i.Kind == ItemJob {
		return i.Job.ID
	}
	return i.Song.ID
}

// Title returns the display title, honoring the romanized preference for songs.
func (i Item) Title(romanized bool) string {
	if i.Kind == ItemJob {
		return i.Job.Title
	}
	return i.Song.DisplayTitle(romanized)
}

// Subtitle returns the artist line, with the designer appended when known.
func (i Item) Subtitle(romanized bool) string {
	var artist, designer string
	switch i.Kind {
	case ItemJob:
		artist = i.Job.Artist
		designer = i.Job.Designer
		if romanized && i.Job.RomanizedDesigner != "" {
			designer = i.Job.RomanizedDesigner
		}
	default:
		artist = i.Song.DisplayArtist(romanized)
		designer = i.Song.Designer
		if romanized && i.Song.RomanizedDesigner != "" {
			designer = i.Song.RomanizedDesigner
		}
	}
	if designer == "" {
		return artist
	}
	if artist == "" {
		return designer
	}
	return artist + " · " + designer
}

// SongItems wraps a slice of songs.
func SongItems(songs []Song) []Item {
	items := make([]Item, len(songs))
	for i, s := range songs {
		items[i] = SongItem(s)
	}
	return items
}

// JobItems wraps a slice of jobs.
func JobItems(jobs []DownloadJob) []Item {
	items := make([]Item, len(jobs))
	for i, j := range jobs {
		items[i] = JobItem(j)
	}
	return items
}
