package rpmmeta

import "encoding/xml"

// MarshalPrimary serializes a PrimaryDoc, setting Packages to len(Entries)
// so invariant 6 always holds by construction.
func MarshalPrimary(doc *PrimaryDoc) ([]byte, error) {
	doc.Xmlns = nsCommon
	doc.XmlnsRpm = nsRpm
	doc.Packages = len(doc.Entries)
	return marshalDoc(doc, nsCommon)
}

// MarshalFilelists serializes a FilelistsDoc.
func MarshalFilelists(doc *FilelistsDoc) ([]byte, error) {
	doc.Xmlns = nsFilelists
	doc.Packages = len(doc.Entries)
	return marshalDoc(doc, nsFilelists)
}

// MarshalOther serializes an OtherDoc.
func MarshalOther(doc *OtherDoc) ([]byte, error) {
	doc.Xmlns = nsOther
	doc.Packages = len(doc.Entries)
	return marshalDoc(doc, nsOther)
}

// MarshalRepomd serializes a RepomdDoc.
func MarshalRepomd(doc *RepomdDoc) ([]byte, error) {
	if doc.Xmlns == "" {
		doc.Xmlns = nsRepo
	}
	if doc.XmlnsRpm == "" {
		doc.XmlnsRpm = nsRpm
	}
	return marshalDoc(doc, nsRepo)
}

func marshalDoc(v interface{}, defaultNS string) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", " ")
	if err != nil {
		return nil, err
	}
	body = StripAutoPrefix(body, defaultNS)
	return append([]byte(xml.Header), body...), nil
}

// ParsePrimary parses a primary.xml document.
func ParsePrimary(data []byte) (*PrimaryDoc, error) {
	var doc PrimaryDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFilelists parses a filelists.xml document.
func ParseFilelists(data []byte) (*FilelistsDoc, error) {
	var doc FilelistsDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseOther parses an other.xml document.
func ParseOther(data []byte) (*OtherDoc, error) {
	var doc OtherDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseRepomd parses a repomd.xml document.
func ParseRepomd(data []byte) (*RepomdDoc, error) {
	var doc RepomdDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
