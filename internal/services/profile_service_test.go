package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/yoockh/techfinder/internal/utils"
)

type fakeUploader struct {
	objects map[string]string
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, objectName, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string]string{}
	}
	u.objects[objectName] = string(b)
	return "https://storage.googleapis.com/test-bucket/" + objectName, nil
}

func TestProfileReads(t *testing.T) {
	log, _ := newTestLogger()
	svc := NewProfileService(newSessions(t, seededSource(), log), nil, log)
	ctx := context.Background()

	me, err := svc.GetMe(ctx, "uid-a")
	if err != nil || me.ID != "tech-a" {
		t.Fatalf("GetMe = %+v, %v", me, err)
	}
	other, err := svc.GetByIdentity(ctx, "uid-a", "uid-r")
	if err != nil || other.Recruiter == nil {
		t.Fatalf("GetByIdentity = %+v, %v", other, err)
	}
	if _, err := svc.GetMe(ctx, "uid-unknown"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("GetMe(unknown) err = %v", err)
	}
	if _, err := svc.Contractor(ctx, "uid-a", "missing"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("Contractor(missing) err = %v", err)
	}
	list, err := svc.Contractors(ctx, "uid-a")
	if err != nil || len(list) != 2 {
		t.Fatalf("Contractors = %d, %v", len(list), err)
	}
	recs, err := svc.Recruiters(ctx, "uid-a")
	if err != nil || len(recs) != 1 {
		t.Fatalf("Recruiters = %d, %v", len(recs), err)
	}
}

func TestUploadPicture(t *testing.T) {
	log, _ := newTestLogger()
	up := &fakeUploader{}
	svc := NewProfileService(newSessions(t, seededSource(), log), up, log)
	ctx := context.Background()

	url, err := svc.UploadPicture(ctx, "uid-a", "Me.PNG", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadPicture: %v", err)
	}
	if !strings.HasPrefix(url, "https://storage.googleapis.com/test-bucket/profiles/uid-a/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}
	me, _ := svc.GetMe(ctx, "uid-a")
	if me.ProfileImg != url {
		t.Fatalf("profileImg = %q, want %q", me.ProfileImg, url)
	}

	if _, err := svc.UploadPicture(ctx, "uid-a", "cv.pdf", "application/pdf", strings.NewReader("x")); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("non-image err = %v", err)
	}

	up.err = errors.New("bucket gone")
	if _, err := svc.UploadPicture(ctx, "uid-a", "a.png", "image/png", strings.NewReader("x")); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("upload failure err = %v", err)
	}
}

func TestUploadPictureWithoutStorage(t *testing.T) {
	log, _ := newTestLogger()
	svc := NewProfileService(newSessions(t, seededSource(), log), nil, log)

	_, err := svc.UploadPicture(context.Background(), "uid-a", "a.png", "image/png", strings.NewReader("x"))
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
}
